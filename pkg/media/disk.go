package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DiskStore stages images on the local filesystem. Metadata rides in a
// sidecar JSON file next to each image so staged uploads survive a restart.
type DiskStore struct {
	dir     string
	maxSize int64

	mu     sync.RWMutex
	staged map[string]*diskMeta
}

type diskMeta struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	StagedAt    time.Time `json:"staged_at"`
}

// NewDiskStore creates the staging directory if needed. maxSize of 0
// means no limit.
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{
		dir:     dir,
		maxSize: maxSize,
		staged:  make(map[string]*diskMeta),
	}, nil
}

func (s *DiskStore) Stage(ctx context.Context, up Upload, r io.Reader) (string, error) {
	if s.maxSize > 0 && up.DeclaredSize > s.maxSize {
		return "", ErrTooLarge
	}

	id := newImageID()
	path := filepath.Join(s.dir, id)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader := r
	if s.maxSize > 0 {
		// One extra byte so an at-limit read is distinguishable from
		// an over-limit one.
		reader = io.LimitReader(r, s.maxSize+1)
	}
	written, err := io.Copy(f, reader)
	if err != nil {
		os.Remove(path)
		return "", err
	}
	if s.maxSize > 0 && written > s.maxSize {
		os.Remove(path)
		return "", ErrTooLarge
	}

	meta := &diskMeta{
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Size:        written,
		StagedAt:    time.Now(),
	}
	if err := s.writeMeta(id, meta); err != nil {
		os.Remove(path)
		return "", err
	}

	s.mu.Lock()
	s.staged[id] = meta
	s.mu.Unlock()

	return id, nil
}

func (s *DiskStore) Claim(ctx context.Context, id string) (*Image, error) {
	s.mu.Lock()
	meta, ok := s.staged[id]
	if ok {
		delete(s.staged, id)
	}
	s.mu.Unlock()

	if !ok {
		// Staged before a restart; fall back to the sidecar.
		var err error
		meta, err = s.readMeta(id)
		if err != nil {
			return nil, ErrNotFound
		}
	}

	path := filepath.Join(s.dir, id)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &Image{
		ID:          id,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		Content: &removeOnClose{
			File:  f,
			paths: []string{path, s.metaPath(id)},
		},
	}, nil
}

func (s *DiskStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	s.mu.Lock()
	for id, meta := range s.staged {
		if meta.StagedAt.Before(cutoff) {
			delete(s.staged, id)
			os.Remove(filepath.Join(s.dir, id))
			os.Remove(s.metaPath(id))
			removed++
		}
	}
	s.mu.Unlock()

	// Orphans from before a restart only exist on disk.
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return removed, err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) == ".meta" {
			continue
		}
		s.mu.RLock()
		_, tracked := s.staged[entry.Name()]
		s.mu.RUnlock()
		if tracked {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(s.dir, entry.Name()))
			os.Remove(s.metaPath(entry.Name()))
			removed++
		}
	}
	return removed, nil
}

func (s *DiskStore) metaPath(id string) string {
	return filepath.Join(s.dir, id+".meta")
}

func (s *DiskStore) writeMeta(id string, meta *diskMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(s.metaPath(id), data, 0o644)
}

func (s *DiskStore) readMeta(id string) (*diskMeta, error) {
	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		return nil, err
	}
	var meta diskMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func newImageID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// removeOnClose deletes the staged files once the content is consumed.
type removeOnClose struct {
	*os.File
	paths []string
}

func (r *removeOnClose) Close() error {
	err := r.File.Close()
	for _, p := range r.paths {
		os.Remove(p)
	}
	return err
}
