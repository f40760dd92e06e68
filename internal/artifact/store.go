package artifact

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"
)

var idRe = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Meta describes one stored capture artifact.
type Meta struct {
	ID        string    `json:"id"`
	TabID     string    `json:"tab_id"`
	Kind      string    `json:"kind"`   // screenshot, html, css, complete
	Format    string    `json:"format"` // png, jpeg, webp, html, css, json
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewID returns a fresh artifact identifier.
func NewID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// time-derived id rather than panicking in a capture path.
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

// Store persists capture artifacts on disk, one payload file plus one JSON
// metadata sidecar per artifact.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) validateID(id string) error {
	if !idRe.MatchString(id) {
		return fmt.Errorf("invalid artifact id: %q", id)
	}
	return nil
}

// Save writes both the payload file and the metadata sidecar.
func (s *Store) Save(meta Meta, data []byte) error {
	if err := s.validateID(meta.ID); err != nil {
		return err
	}
	meta.SizeBytes = len(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	payloadPath := filepath.Join(s.dir, meta.ID+"."+meta.Format)
	jsonPath := filepath.Join(s.dir, meta.ID+".json")

	if err := os.WriteFile(payloadPath, data, 0o644); err != nil {
		return fmt.Errorf("artifact store: write payload: %w", err)
	}

	sidecar, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		_ = os.Remove(payloadPath)
		return fmt.Errorf("artifact store: marshal meta: %w", err)
	}

	if err := os.WriteFile(jsonPath, sidecar, 0o644); err != nil {
		_ = os.Remove(payloadPath)
		return fmt.Errorf("artifact store: write meta: %w", err)
	}

	return nil
}

// Get reads artifact metadata by ID.
func (s *Store) Get(id string) (Meta, error) {
	if err := s.validateID(id); err != nil {
		return Meta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, fmt.Errorf("artifact not found: %s", id)
		}
		return Meta{}, fmt.Errorf("artifact store: read meta: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("artifact store: unmarshal meta: %w", err)
	}
	return meta, nil
}

// List returns all artifacts sorted by creation time, newest first.
func (s *Store) List() ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("artifact store: glob: %w", err)
	}

	metas := make([]Meta, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var meta Meta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})

	return metas, nil
}

// ReadPayload reads the raw payload bytes and returns the format.
func (s *Store) ReadPayload(id string) ([]byte, string, error) {
	meta, err := s.Get(id)
	if err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, id+"."+meta.Format))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("artifact payload not found: %s", id)
		}
		return nil, "", fmt.Errorf("artifact store: read payload: %w", err)
	}
	return data, meta.Format, nil
}

// Delete removes both the payload and metadata files.
func (s *Store) Delete(id string) error {
	meta, err := s.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, id+"."+meta.Format)); err != nil {
		slog.Debug("artifact payload cleanup failed", "id", id, "error", err)
	}
	_ = os.Remove(filepath.Join(s.dir, id+".json"))
	return nil
}
