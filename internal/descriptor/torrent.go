package descriptor

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"

	"github.com/zeebo/bencode"

	"tether/internal/services"
	"tether/internal/store"
)

type torrentFile struct {
	Info bencode.RawMessage `bencode:"info"`
}

type torrentInfo struct {
	Name   string `bencode:"name"`
	Length int64  `bencode:"length"`
	Files  []struct {
		Length int64    `bencode:"length"`
		Path   []string `bencode:"path"`
	} `bencode:"files"`
}

func parseZurgTorrent(filePath string, data []byte) (Descriptor, error) {
	var outer torrentFile
	if err := bencode.DecodeBytes(data, &outer); err != nil {
		return Descriptor{}, services.Wrap(services.ErrMalformed, "descriptor", "zurgtorrent", filePath, err)
	}
	if len(outer.Info) == 0 {
		return Descriptor{}, services.Wrap(services.ErrMalformed, "descriptor", "zurgtorrent", filePath+": missing info dictionary", nil)
	}

	// The infohash is the SHA-1 of the raw bencoded info dictionary, so it
	// must be computed over the original bytes, not a re-encoding.
	sum := sha1.Sum(outer.Info)
	hash := strings.ToUpper(hex.EncodeToString(sum[:]))

	var info torrentInfo
	if err := bencode.DecodeBytes(outer.Info, &info); err != nil {
		return Descriptor{Hash: hash}, services.Wrap(services.ErrMalformed, "descriptor", "zurgtorrent", filePath+": decode info", err)
	}
	name := strings.TrimSpace(info.Name)
	if name == "" {
		return Descriptor{Hash: hash}, services.Wrap(services.ErrMalformed, "descriptor", "zurgtorrent", filePath+": missing name", nil)
	}

	var files []store.FileEntry
	if len(info.Files) > 0 {
		files = make([]store.FileEntry, 0, len(info.Files))
		for _, f := range info.Files {
			if len(f.Path) == 0 {
				continue
			}
			rel := path.Join(append([]string{name}, f.Path...)...)
			files = append(files, store.FileEntry{Path: rel, Size: f.Length})
		}
	} else {
		files = []store.FileEntry{{Path: name, Size: info.Length}}
	}

	rawSum := sha256.Sum256(data)
	return Descriptor{
		Hash:    hash,
		Name:    name,
		Files:   files,
		RawHash: hex.EncodeToString(rawSum[:]),
		Path:    filePath,
		Source:  SourceZurgTorrent,
	}, nil
}
