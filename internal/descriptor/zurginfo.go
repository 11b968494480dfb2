package descriptor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"tether/internal/services"
	"tether/internal/store"
)

type zurgInfoFile struct {
	Hash     string `json:"hash"`
	Filename string `json:"filename"`
	Files    []struct {
		Path string `json:"path"`
		Size int64  `json:"size"`
	} `json:"files"`
}

func parseZurgInfo(path string, data []byte) (Descriptor, error) {
	var parsed zurgInfoFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Descriptor{}, services.Wrap(services.ErrMalformed, "descriptor", "zurginfo", path, err)
	}

	hash := strings.ToUpper(strings.TrimSpace(parsed.Hash))
	if hash == "" {
		return Descriptor{}, services.Wrap(services.ErrMalformed, "descriptor", "zurginfo", path+": missing hash", nil)
	}

	name := strings.TrimSpace(parsed.Filename)
	if name == "" {
		name = hash
	}

	files := make([]store.FileEntry, 0, len(parsed.Files))
	for _, f := range parsed.Files {
		p := strings.TrimSpace(f.Path)
		if p == "" {
			continue
		}
		files = append(files, store.FileEntry{Path: p, Size: f.Size})
	}
	// A descriptor without an explicit file list declares its name as the
	// single content entry, matching how the gateway exposes flat torrents.
	if len(files) == 0 {
		files = append(files, store.FileEntry{Path: name})
	}

	sum := sha256.Sum256(data)
	return Descriptor{
		Hash:    hash,
		Name:    name,
		Files:   files,
		RawHash: hex.EncodeToString(sum[:]),
		Path:    path,
		Source:  SourceZurgInfo,
	}, nil
}
