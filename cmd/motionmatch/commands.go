package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/motion.match/internal/config"
	"github.com/banshee-data/motion.match/internal/motion/clipio"
	"github.com/banshee-data/motion.match/internal/motion/m3corpus"
	"github.com/banshee-data/motion.match/internal/motion/m4index"
	"github.com/banshee-data/motion.match/internal/motion/m6blend"
	"github.com/banshee-data/motion.match/internal/motion/report"
	"github.com/banshee-data/motion.match/internal/motion/storage/sqlite"
)

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.LoadDefaultConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func handleBuild(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	clipsDir := fs.String("clips", "", "Directory of clip JSON files (required)")
	outPath := fs.String("out", "", "Write the artifact to this path")
	name := fs.String("name", "", "Library name for the asset (defaults to the clips directory)")
	if err := parseFlags(fs, args, out); err != nil {
		return err
	}
	setupLogging(common.verbose, common.trace)

	if *clipsDir == "" {
		fmt.Fprintln(out, "Error: --clips is required")
		fs.Usage()
		return errUsage
	}
	if *outPath == "" && common.db == "" {
		fmt.Fprintln(out, "Error: give --out, --db, or both")
		return errUsage
	}

	tuning, err := loadTuning(common.config)
	if err != nil {
		return err
	}
	asset, rep, err := buildCorpus(*clipsDir, m3corpus.BuildConfigFromTuning(tuning))
	if err != nil {
		return err
	}
	printBuildReport(out, rep)
	if asset.Empty() {
		return errors.New("no clips accepted")
	}

	if *outPath != "" {
		if err := writeArtifact(*outPath, asset); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", *outPath)
	}
	if common.db != "" {
		db, err := sqlite.Open(common.db)
		if err != nil {
			return err
		}
		defer db.Close()
		if *name == "" {
			*name = *clipsDir
		}
		id, err := sqlite.NewAssetStore(db.DB).Save(*name, asset)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "saved %s as %s\n", *name, id)
	}
	return nil
}

// buildCorpus loads every clip in dir and resamples them into an asset.
func buildCorpus(dir string, cfg m3corpus.BuildConfig) (*m3corpus.Asset, m3corpus.BuildReport, error) {
	clips, err := clipio.LoadDir(dir)
	if err != nil {
		return nil, m3corpus.BuildReport{}, err
	}
	in := make([]m3corpus.Clip, len(clips))
	for i, c := range clips {
		in[i] = c
	}
	return m3corpus.Build(in, cfg)
}

func printBuildReport(out io.Writer, rep m3corpus.BuildReport) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLIP\tCHUNK\tFRAMES\tPOINTS\tLOOP\tSTATUS")
	for _, r := range rep.Accepted {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%t\tok\n", r.Name, r.Chunk, r.Frames, r.Points, r.Loopable)
	}
	for _, r := range rep.Skipped {
		fmt.Fprintf(tw, "%s\t-\t%d\t-\t%t\t%s: %s\n", r.Name, r.Frames, r.Loopable, r.Reason, r.Detail)
	}
	tw.Flush()
}

func writeArtifact(path string, asset *m3corpus.Asset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := asset.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// loadAsset reads the corpus named by --asset, or by --db and --id. With
// --db and no --id the newest library asset is used.
func loadAsset(common commonFlags) (*m3corpus.Asset, error) {
	switch {
	case common.asset != "":
		f, err := os.Open(common.asset)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return m3corpus.ReadAsset(f)
	case common.db != "":
		db, err := sqlite.Open(common.db)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		store := sqlite.NewAssetStore(db.DB)
		id := common.id
		if id == "" {
			records, err := store.List()
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				return nil, fmt.Errorf("library %s is empty", common.db)
			}
			id = records[0].AssetID
		}
		return store.Load(id)
	}
	return nil, fmt.Errorf("%w: give --asset or --db", errUsage)
}

func handleInspect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := parseFlags(fs, args, out); err != nil {
		return err
	}
	setupLogging(common.verbose, common.trace)

	// A bare --db lists the library.
	if common.asset == "" && common.db != "" && common.id == "" {
		return listLibrary(out, common.db)
	}

	tuning, err := loadTuning(common.config)
	if err != nil {
		return err
	}
	asset, err := loadAsset(common)
	if err != nil {
		return err
	}
	cfg := asset.Config()
	fmt.Fprintf(out, "pose interval:  %.6fs\n", cfg.PoseInterval)
	fmt.Fprintf(out, "trajectory:     %d points every %.3fs, anchor %d\n",
		cfg.Trajectory.NumPoints, cfg.Trajectory.IntervalTime, cfg.Trajectory.HistoryCount)
	fmt.Fprintf(out, "chunks:         %d (%d poses, %d trajectory points)\n",
		asset.NumChunks(), asset.Poses().Len(), asset.Trajectories().Len())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHUNK\tCLIP\tLOOP\tDURATION")
	for chunk := range asset.NumChunks() {
		d, err := asset.ChunkDuration(chunk)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%s\t%t\t%.2fs\n", chunk, asset.ClipName(chunk), asset.Loopable(chunk), d)
	}
	tw.Flush()

	opts := m4index.OptionsFromTuning(tuning)
	ix, err := m4index.Build(asset, opts.Strategy)
	if err != nil {
		return err
	}
	st := ix.Stats()
	fmt.Fprintf(out, "index:          %s, %d windows of dim %d, %d chunks skipped\n",
		st.Strategy, st.Windows, st.Dim, st.SkippedChunks)
	if len(st.ClusterSizes) > 0 {
		fmt.Fprintf(out, "cluster sizes:  %v\n", st.ClusterSizes)
	}
	return nil
}

func listLibrary(out io.Writer, path string) error {
	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	records, err := sqlite.NewAssetStore(db.DB).List()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCHUNKS\tPOSES\tSIZE\tCREATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.AssetID, r.Name, r.NumChunks, r.NumPoses, r.SizeBytes,
			time.Unix(0, r.CreatedAt).Format(time.RFC3339))
	}
	return tw.Flush()
}

func handleSimulate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	var p simParams
	fs.Float64Var(&p.Speed, "speed", 100, "Desired speed in corpus units per second")
	fs.Float64Var(&p.TurnRate, "turn", 0, "Desired turn rate in radians per second")
	fs.DurationVar(&p.Zigzag, "zigzag", 0, "Flip the turn direction at this period (0 keeps it)")
	fs.Float64Var(&p.Seconds, "seconds", 10, "Simulated duration")
	fs.Float64Var(&p.FPS, "fps", 60, "Player update rate")
	usePose := fs.Bool("pose", true, "Re-rank candidates by the current pose")
	outPath := fs.String("out", "", "Write the recorded samples as JSON")
	htmlPath := fs.String("html", "", "Render the run timeline to this HTML file")
	if err := parseFlags(fs, args, out); err != nil {
		return err
	}
	setupLogging(common.verbose, common.trace)
	p.UsePose = *usePose

	tuning, err := loadTuning(common.config)
	if err != nil {
		return err
	}
	asset, err := loadAsset(common)
	if err != nil {
		return err
	}
	ix, err := m4index.Build(asset, m4index.OptionsFromTuning(tuning).Strategy)
	if err != nil {
		return err
	}
	samples, err := simulate(asset, ix, m6blend.ConfigFromTuning(tuning), p)
	if err != nil {
		return err
	}

	sum := summarize(samples)
	fmt.Fprintf(out, "frames=%d rematches=%d idle=%d travelled=%.2f mean_distance=%.4f\n",
		sum.Frames, sum.Rematches, sum.Idle, sum.Travelled, sum.MeanDistance)

	if *outPath != "" {
		if err := writeSamples(*outPath, samples); err != nil {
			return err
		}
	}
	if *htmlPath != "" {
		if err := renderRunFile(*htmlPath, "motionmatch simulate", samples); err != nil {
			return err
		}
	}
	return nil
}

func writeSamples(path string, samples []report.RunSample) error {
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readSamples(path string) ([]report.RunSample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var samples []report.RunSample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return samples, nil
}

func renderRunFile(path, title string, samples []report.RunSample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.RenderRun(f, title, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func handleReport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	pngPath := fs.String("png", "", "Write the corpus trajectory plot here")
	runPath := fs.String("run", "", "Samples JSON written by simulate --out")
	htmlPath := fs.String("html", "", "Render the run timeline here (needs --run)")
	if err := parseFlags(fs, args, out); err != nil {
		return err
	}
	setupLogging(common.verbose, common.trace)

	if *pngPath == "" && *htmlPath == "" {
		fmt.Fprintln(out, "Error: give --png, --html, or both")
		return errUsage
	}
	if *pngPath != "" {
		asset, err := loadAsset(common)
		if err != nil {
			return err
		}
		if err := report.PlotTrajectories(asset, *pngPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", *pngPath)
	}
	if *htmlPath != "" {
		if *runPath == "" {
			fmt.Fprintln(out, "Error: --html needs --run")
			return errUsage
		}
		samples, err := readSamples(*runPath)
		if err != nil {
			return err
		}
		if err := renderRunFile(*htmlPath, *runPath, samples); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", *htmlPath)
	}
	return nil
}
