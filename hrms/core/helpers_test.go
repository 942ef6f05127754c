package core

import (
	"context"
	"errors"
	"io"
	"sync"

	"tfshrms.cloud/hrms/infrastructure/communication"
)

type memStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (m *memStore) Put(ctx context.Context, dir, name string, body io.Reader) (string, error) {
	if m.failPut {
		return "", errors.New("store unavailable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[dir+"/"+name] = data
	return name, nil
}

func (m *memStore) Delete(ctx context.Context, dir, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, dir+"/"+name)
	return nil
}

func (m *memStore) URL(dir, name string) string {
	return "https://files.example.com/" + dir + "/" + name
}

func (m *memStore) has(dir, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[dir+"/"+name]
	return ok
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type memMailer struct {
	mu   sync.Mutex
	sent []*communication.EmailInfo
	err  error
}

func (m *memMailer) SendEmail(ctx context.Context, info *communication.EmailInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, info)
	return m.err
}

func (m *memMailer) messages() []*communication.EmailInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*communication.EmailInfo(nil), m.sent...)
}
