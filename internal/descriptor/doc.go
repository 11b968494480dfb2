// Package descriptor reads the gateway's torrent descriptor files. Two
// formats are supported: .zurginfo (JSON) and .zurgtorrent (bencoded
// torrent, infohash derived from the raw info dictionary).
package descriptor
