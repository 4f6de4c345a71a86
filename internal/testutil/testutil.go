// Package testutil holds in-memory stand-ins for the infrastructure services
// depend on: the room broadcaster, the object store and the worker pool.
package testutil

import (
	"context"
	"mime/multipart"
	"sync"

	"todoshi/internal/domain"
	"todoshi/internal/worker"
)

// Broadcast is one recorded room event
type Broadcast struct {
	Room    string
	Event   string
	Payload any
}

// Recorder implements room.Broadcaster by remembering every call
type Recorder struct {
	mu     sync.Mutex
	events []Broadcast
}

func (r *Recorder) Broadcast(roomKey, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Broadcast{Room: roomKey, Event: event, Payload: payload})
}

// Events returns a copy of everything broadcast so far
func (r *Recorder) Events() []Broadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Broadcast(nil), r.events...)
}

// Named filters recorded broadcasts by event name
func (r *Recorder) Named(event string) []Broadcast {
	var out []Broadcast
	for _, b := range r.Events() {
		if b.Event == event {
			out = append(out, b)
		}
	}
	return out
}

// ObjectStore keys uploads by folder and filename and records deletes
type ObjectStore struct {
	mu        sync.Mutex
	Uploaded  []string
	Deleted   []string
	UploadErr error
}

func (s *ObjectStore) Upload(_ context.Context, folder string, file *multipart.FileHeader) (domain.FileRef, error) {
	if s.UploadErr != nil {
		return domain.FileRef{}, s.UploadErr
	}
	key := folder + "/" + file.Filename
	s.mu.Lock()
	s.Uploaded = append(s.Uploaded, key)
	s.mu.Unlock()
	return domain.FileRef{PublicID: key, URL: "http://objects.local/" + key}, nil
}

func (s *ObjectStore) Delete(_ context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, publicID)
	return nil
}

// InlineJobs runs submitted tasks synchronously on the caller goroutine
type InlineJobs struct{}

func (InlineJobs) Submit(_ string, t worker.Task) bool {
	_ = t(context.Background())
	return true
}
