package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/bencode"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// ZurgInfoFile mirrors the gateway's JSON descriptor shape.
type ZurgInfoFile struct {
	Hash     string             `json:"hash"`
	Filename string             `json:"filename"`
	Files    []ZurgInfoFileItem `json:"files,omitempty"`
}

// ZurgInfoFileItem is one declared file inside a JSON descriptor.
type ZurgInfoFileItem struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// WriteZurgInfo writes a .zurginfo descriptor into dir.
func WriteZurgInfo(t testing.TB, dir, base string, info ZurgInfoFile) string {
	t.Helper()

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("marshal zurginfo: %v", err)
	}
	path := filepath.Join(dir, base+".zurginfo")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteZurgTorrent writes a .zurgtorrent descriptor into dir. The info
// argument is the torrent's info dictionary; file entries use bencode types.
func WriteZurgTorrent(t testing.TB, dir, base string, info map[string]any) string {
	t.Helper()

	data, err := bencode.EncodeBytes(map[string]any{"info": info})
	if err != nil {
		t.Fatalf("encode torrent: %v", err)
	}
	path := filepath.Join(dir, base+".zurgtorrent")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
