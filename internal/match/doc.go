// Package match scores torrent names against mount directory names using
// token term-frequency fingerprints and cosine similarity. It tolerates the
// renames a gateway applies when exposing content on the mount.
package match
