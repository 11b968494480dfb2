package descriptor

import (
	"tether/internal/store"
)

// Source identifies which descriptor format produced an entry.
type Source string

const (
	SourceZurgInfo    Source = "zurginfo"
	SourceZurgTorrent Source = "zurgtorrent"
)

// Descriptor is one parsed gateway descriptor file.
type Descriptor struct {
	// Hash is the uppercase hex infohash.
	Hash string
	// Name is the torrent display name.
	Name string
	// Files lists the declared content, relative to the torrent root.
	Files []store.FileEntry
	// RawHash is a checksum of the descriptor file bytes, used to skip
	// re-parsing unchanged descriptors.
	RawHash string
	// Path is the descriptor file location.
	Path string
	// Source is the originating format.
	Source Source
}

// Warning captures a descriptor file that could not be fully parsed. Hash is
// set when the file yielded an identity despite being otherwise unusable, so
// the item can still be registered and flagged for review.
type Warning struct {
	Path string
	Hash string
	Err  error
}

// BatchReport is the outcome of one walk over the info directory.
type BatchReport struct {
	Descriptors  []Descriptor
	Warnings     []Warning
	FilesScanned int
}
