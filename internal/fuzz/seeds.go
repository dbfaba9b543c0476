package fuzztests

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"kestrel/internal/driver"
)

const (
	maxSeedBytes = 64 << 10
	maxFuzzInput = 256 << 10
)

func testdataRoot() string {
	return filepath.Join("..", "astio", "testdata")
}

// addDocumentSeeds adds every program document under testdata.
func addDocumentSeeds(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte("functions:\n  - name: main\n    result: int\n    body:\n      - return: 0\n"))
	_ = filepath.WalkDir(testdataRoot(), func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".json":
		default:
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

// addModuleSeeds adds the encoded form of every testdata document.
func addModuleSeeds(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte("KSTL"))
	matches, _ := filepath.Glob(filepath.Join(testdataRoot(), "*"))
	for _, path := range matches {
		r, err := driver.CompileFile(context.Background(), path, driver.Options{})
		if err != nil || r.Failed() {
			continue
		}
		f.Add(r.Bytes)
	}
}

func clampSeed(b []byte) []byte {
	if len(b) > maxSeedBytes {
		return append([]byte(nil), b[:maxSeedBytes]...)
	}
	return b
}

func clampInput(b []byte) []byte {
	if len(b) > maxFuzzInput {
		return append([]byte(nil), b[:maxFuzzInput]...)
	}
	return append([]byte(nil), b...)
}
