// Package cache implements the content-addressed cache, spec.md §4.H: it
// lets the API-link resolver skip the language server entirely when
// neither the requested item set nor the fingerprint of the project's
// source has changed since a prior successful run.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
)

// FileName is the persisted cache's logical name under the configured
// cache directory.
const FileName = "cache.json"

// Record is the on-disk shape: item→URL map plus the environment
// checksum it was computed against. Unknown keys are ignored on read and
// missing keys are treated as empty, per spec.md §6's forward-compat rule.
type Record struct {
	Items       map[string]string `json:"items"`
	EnvChecksum string            `json:"env_checksum"`
}

// EnvFile is one input to the environment checksum: a path (used for
// stable ordering and hashed alongside the content) and its full content.
type EnvFile struct {
	Path    string
	Content []byte
}

// Checksum computes env_checksum as a SHA-256 fold over the sorted list
// of (path, content) tuples it is given. The API-link binary passes the
// project manifest and the entry source file only; the workspace manifest
// and the source files a previous run resolved to local paths are not
// included. Dependencies and lock files are never passed.
func Checksum(files []EnvFile) string {
	sorted := make([]EnvFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()
	for _, f := range sorted {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write(f.Content)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Load reads and zstd-decompresses the cache file. A missing file,
// corrupt archive, or malformed JSON is not an error to the caller — cache
// miss/corruption is "silently discarded, treated as cold start" per
// spec.md §7 — so Load returns (nil, nil) in every case except an
// unexpected filesystem error.
func Load(dir string) (*Record, error) {
	path := filepath.Join(dir, FileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, nil
	}
	defer dec.Close()

	body, err := decodeAll(dec)
	if err != nil {
		return nil, nil
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, nil
	}
	if rec.Items == nil {
		rec.Items = make(map[string]string)
	}
	return &rec, nil
}

func decodeAll(dec *zstd.Decoder) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(dec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes rec atomically: encode, zstd-compress, write to a temp file
// in the same directory, then rename over the target — the classic
// write-temp-then-rename pattern spec.md §3 mandates for cache durability.
func Save(dir string, rec *Record) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling cache record: %w", err)
	}

	var compressed bytes.Buffer
	enc, err := zstd.NewWriter(&compressed)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := enc.Write(body); err != nil {
		enc.Close()
		return fmt.Errorf("compressing cache record: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing zstd writer: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(compressed.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, FileName)); err != nil {
		return fmt.Errorf("renaming cache file into place: %w", err)
	}
	return nil
}

// Hit reports whether rec can be reused for the given requested item set:
// requested must be a subset of rec's cached items and checksum must
// match exactly.
func Hit(rec *Record, requested []string, envChecksum string) bool {
	if rec == nil || rec.EnvChecksum != envChecksum {
		return false
	}
	for _, item := range requested {
		if _, ok := rec.Items[item]; !ok {
			return false
		}
	}
	return true
}

// Clear removes the cache file, used by the supplemented `cache clear`
// administrative subcommand.
func Clear(dir string) error {
	err := os.Remove(filepath.Join(dir, FileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}

// Stat reports whether a cache file exists and how many items it holds,
// used by the supplemented `cache stat` subcommand.
func Stat(dir string) (exists bool, itemCount int, err error) {
	rec, loadErr := Load(dir)
	if loadErr != nil {
		return false, 0, loadErr
	}
	if rec == nil {
		return false, 0, nil
	}
	return true, len(rec.Items), nil
}
