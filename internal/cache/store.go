package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned by a Store when no durable record exists for a key.
var ErrNotFound = errors.New("cache: record not found")

// ErrCorrupt marks a durable record that could not be decoded. The cache
// treats it as a miss and deletes the record.
var ErrCorrupt = errors.New("cache: corrupt record")

// Record is the durable representation of one cache entry.
type Record struct {
	Key       string          `json:"key"`
	CreatedAt time.Time       `json:"created_at"`
	Value     json.RawMessage `json:"value"`
}

// Store persists cache records, one independently addressable record per key.
type Store interface {
	Read(key string) (Record, error)
	Write(rec Record) error
	Delete(key string) error
	Keys() ([]string, error)
}

// FileStore keeps one JSON file per key inside a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Cache keys can contain characters that are not filesystem-safe, so files
// are named by a short hash of the key.
func (fs *FileStore) path(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(fs.dir, hex.EncodeToString(h[:])[:16]+".json")
}

func (fs *FileStore) Read(key string) (Record, error) {
	data, err := os.ReadFile(fs.path(key))
	if os.IsNotExist(err) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if rec.Key != key || rec.CreatedAt.IsZero() {
		return Record{}, ErrCorrupt
	}
	return rec, nil
}

func (fs *FileStore) Write(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal cache record: %w", err)
	}
	if err := os.WriteFile(fs.path(rec.Key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache record: %w", err)
	}
	return nil
}

func (fs *FileStore) Delete(key string) error {
	err := os.Remove(fs.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Keys reads every record file to recover the original keys. Unreadable files
// are removed on the spot rather than surfaced.
func (fs *FileStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache dir: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(fs.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil || rec.Key == "" {
			os.Remove(path)
			continue
		}
		keys = append(keys, rec.Key)
	}
	return keys, nil
}
