// Package scheduler runs the periodic reconciliation loop. It reads
// descriptors and scans the mount concurrently, feeds both into the
// reconciler, and escalates repeated unknown scans into a global pause of
// status downgrades until the mount recovers.
package scheduler
