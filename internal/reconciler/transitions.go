package reconciler

import (
	"tether/internal/store"
)

// visibility summarizes what a healthy snapshot showed for one item.
type visibility struct {
	visibleFiles  int
	declaredFiles int
	// matchedDir is set when no declared file was visible but a mount
	// directory matched the item name above the similarity threshold.
	matchedDir   string
	matchedScore float64
}

func (v visibility) anyVisible() bool {
	return v.visibleFiles > 0 || v.matchedDir != ""
}

func (v visibility) allVisible() bool {
	if v.matchedDir != "" {
		return true
	}
	return v.declaredFiles > 0 && v.visibleFiles == v.declaredFiles
}

// decision is the outcome of applying the state machine to one item.
type decision struct {
	status       store.Status
	missingScans int
	// seen marks the item as observed on the mount this pass.
	seen bool
	// remove marks the item for soft deletion.
	remove bool
}

// decide applies the status state machine for one item against a healthy
// snapshot. It never runs for Unknown snapshots; the caller skips the whole
// pass in that case.
//
// descriptorPresent reports whether the current batch still carries the
// item's descriptor; removal requires the descriptor gone AND the content
// confirmed absent. downgradesPaused blocks movement toward missing/removed
// while the mount is in a known outage window, but never blocks upgrades.
func decide(item *store.Item, vis visibility, descriptorPresent bool, missingThreshold int, downgradesPaused bool) decision {
	d := decision{status: item.Status, missingScans: item.MissingScans}

	if vis.anyVisible() {
		d.seen = true
		d.missingScans = 0
		if vis.allVisible() {
			d.status = store.StatusAvailable
		} else {
			d.status = store.StatusPartial
		}
		return d
	}

	// Nothing visible on a healthy scan.
	switch item.Status {
	case store.StatusPending:
		// Never promoted to missing: content that was never confirmed
		// present cannot go absent.
		return d
	case store.StatusAvailable, store.StatusPartial:
		if downgradesPaused {
			return d
		}
		d.missingScans = item.MissingScans + 1
		if d.missingScans >= missingThreshold {
			d.status = store.StatusMissing
			d.missingScans = 0
		}
		return d
	case store.StatusMissing:
		if downgradesPaused {
			return d
		}
		if !descriptorPresent {
			d.remove = true
		}
		return d
	default:
		return d
	}
}
