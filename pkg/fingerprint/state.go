package fingerprint

import (
	"os"
	"strings"
	"sync"
)

// FileStore persists the last published digest across agent restarts.
type FileStore struct {
	path string
}

// NewFileStore returns a digest store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored digest. A missing file is not an error: it simply
// means nothing was published yet.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the digest atomically enough for a single-writer agent.
func (s *FileStore) Save(digest string) error {
	return os.WriteFile(s.path, []byte(digest+"\n"), 0o644)
}

// MemoryStore keeps the digest in memory, for tests and ephemeral agents.
type MemoryStore struct {
	mu     sync.Mutex
	digest string
}

// NewMemoryStore returns an empty in-memory digest store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.digest, nil
}

func (s *MemoryStore) Save(digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digest = digest
	return nil
}
