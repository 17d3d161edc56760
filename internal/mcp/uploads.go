package mcp

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// upload is a validated batch held in memory until it is processed
type upload struct {
	ID       string
	Path     string
	Data     []byte
	Pages    int
	Uploaded time.Time
}

// uploadStore keeps document handles for the lifetime of the server process
type uploadStore struct {
	mu      sync.Mutex
	uploads map[string]*upload
}

func newUploadStore() *uploadStore {
	return &uploadStore{uploads: make(map[string]*upload)}
}

func (s *uploadStore) put(path string, data []byte, pages int) *upload {
	u := &upload{
		ID:       uuid.NewString(),
		Path:     path,
		Data:     data,
		Pages:    pages,
		Uploaded: time.Now(),
	}

	s.mu.Lock()
	s.uploads[u.ID] = u
	s.mu.Unlock()
	return u
}

func (s *uploadStore) get(id string) (*upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.uploads[id]
	if !ok {
		return nil, fmt.Errorf("unknown document handle: %s", id)
	}
	return u, nil
}

// release drops a handle; releasing an unknown handle is a no-op
func (s *uploadStore) release(id string) {
	s.mu.Lock()
	delete(s.uploads, id)
	s.mu.Unlock()
}

func (s *uploadStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}
