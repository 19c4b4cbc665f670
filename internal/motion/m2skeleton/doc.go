// Package m2skeleton owns Layer 2 of the motion data model: rig topology.
//
// Responsibilities: validating joint hierarchies stored as a flat arena
// (parent by index, always earlier than the child), mapping each joint's
// degrees of freedom to slots in the flat pose vector, and turning pose
// frames into per-joint local and model transforms.
// Key types: Skeleton, Joint, Channel, PoseFrame.
//
// Dependency rule: m2skeleton depends only on geom.
package m2skeleton
