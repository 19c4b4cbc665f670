package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/motion.match/internal/motion/m3corpus"
)

// ErrNotFound is returned when no asset has the requested ID.
var ErrNotFound = errors.New("asset not found")

// AssetRecord summarises a stored asset without its artifact.
type AssetRecord struct {
	AssetID            string  `json:"asset_id"`
	Name               string  `json:"name"`
	PoseInterval       float64 `json:"pose_interval"`
	TrajectoryInterval float64 `json:"trajectory_interval"`
	NumPoints          int     `json:"num_points"`
	HistoryCount       int     `json:"history_count"`
	NumChunks          int     `json:"num_chunks"`
	NumPoses           int     `json:"num_poses"`
	NumTrajectory      int     `json:"num_trajectory_points"`
	SizeBytes          int     `json:"size_bytes"`
	CreatedAt          int64   `json:"created_at"`
}

// ClipRecord is the stored summary of one asset chunk.
type ClipRecord struct {
	AssetID  string  `json:"asset_id"`
	Chunk    int     `json:"chunk"`
	Name     string  `json:"name"`
	Loopable bool    `json:"loopable"`
	Frames   int     `json:"frames"`
	Points   int     `json:"points"`
	Duration float64 `json:"duration"`
}

// AssetStore persists built assets.
type AssetStore struct {
	db *sql.DB
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(db *sql.DB) *AssetStore {
	return &AssetStore{db: db}
}

// Save encodes asset and stores it under name with one summary row per
// chunk. It returns the new asset ID.
func (s *AssetStore) Save(name string, asset *m3corpus.Asset) (string, error) {
	artifact, err := m3corpus.Encode(asset)
	if err != nil {
		return "", fmt.Errorf("encode asset: %w", err)
	}
	clips, err := clipRecords(asset)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	cfg := asset.Config()
	err = retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			INSERT INTO motion_assets (
				asset_id, name, pose_interval, trajectory_interval, num_points,
				history_count, num_chunks, num_poses, num_points_total, artifact, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, name, cfg.PoseInterval, cfg.Trajectory.IntervalTime, cfg.Trajectory.NumPoints,
			cfg.Trajectory.HistoryCount, asset.NumChunks(), asset.Poses().Len(), asset.Trajectories().Len(),
			artifact, time.Now().UnixNano(),
		); err != nil {
			return err
		}
		for _, c := range clips {
			if _, err := tx.Exec(`
				INSERT INTO motion_asset_clips (asset_id, chunk, name, loopable, frames, points, duration)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, c.Chunk, c.Name, c.Loopable, c.Frames, c.Points, c.Duration,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", fmt.Errorf("insert asset %q: %w", name, err)
	}
	return id, nil
}

// Load decodes the stored asset with the given ID.
func (s *AssetStore) Load(id string) (*m3corpus.Asset, error) {
	var artifact []byte
	err := s.db.QueryRow(`SELECT artifact FROM motion_assets WHERE asset_id = ?`, id).Scan(&artifact)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query asset %s: %w", id, err)
	}
	asset, err := m3corpus.Decode(artifact)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", id, err)
	}
	return asset, nil
}

const assetColumns = `asset_id, name, pose_interval, trajectory_interval, num_points,
	history_count, num_chunks, num_poses, num_points_total, length(artifact), created_at`

// Get returns the summary of one stored asset.
func (s *AssetStore) Get(id string) (*AssetRecord, error) {
	row := s.db.QueryRow(`SELECT `+assetColumns+` FROM motion_assets WHERE asset_id = ?`, id)
	r, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// List returns every stored asset, newest first.
func (s *AssetStore) List() ([]*AssetRecord, error) {
	rows, err := s.db.Query(`SELECT ` + assetColumns + ` FROM motion_assets ORDER BY created_at DESC, asset_id`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var out []*AssetRecord
	for rows.Next() {
		r, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Clips returns the chunk summaries of an asset in chunk order.
func (s *AssetStore) Clips(id string) ([]*ClipRecord, error) {
	rows, err := s.db.Query(`
		SELECT asset_id, chunk, name, loopable, frames, points, duration
		FROM motion_asset_clips
		WHERE asset_id = ?
		ORDER BY chunk`, id)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()

	var out []*ClipRecord
	for rows.Next() {
		var c ClipRecord
		if err := rows.Scan(&c.AssetID, &c.Chunk, &c.Name, &c.Loopable, &c.Frames, &c.Points, &c.Duration); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Delete removes an asset and its clip rows.
func (s *AssetStore) Delete(id string) error {
	var n int64
	err := retryOnBusy(func() error {
		res, err := s.db.Exec(`DELETE FROM motion_assets WHERE asset_id = ?`, id)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete asset %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*AssetRecord, error) {
	var r AssetRecord
	err := row.Scan(
		&r.AssetID, &r.Name, &r.PoseInterval, &r.TrajectoryInterval, &r.NumPoints,
		&r.HistoryCount, &r.NumChunks, &r.NumPoses, &r.NumTrajectory, &r.SizeBytes, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func clipRecords(asset *m3corpus.Asset) ([]ClipRecord, error) {
	out := make([]ClipRecord, 0, asset.NumChunks())
	for chunk := range asset.NumChunks() {
		frames, err := asset.Poses().ChunkOffsets().ChunkLen(chunk)
		if err != nil {
			return nil, err
		}
		points, err := asset.Trajectories().ChunkOffsets().ChunkLen(chunk)
		if err != nil {
			return nil, err
		}
		d, err := asset.ChunkDuration(chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, ClipRecord{
			Chunk:    chunk,
			Name:     asset.ClipName(chunk),
			Loopable: asset.Loopable(chunk),
			Frames:   frames,
			Points:   points,
			Duration: d,
		})
	}
	return out, nil
}
