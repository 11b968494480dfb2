// Package reconciler diffs descriptor batches against mount snapshots and
// drives item status transitions. The central rule: an inconclusive mount
// scan is never evidence of absence, so Unknown snapshots produce no
// transitions at all.
package reconciler
