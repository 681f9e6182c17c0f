// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/prism/internal/models"
)

// MockPublisher is a test double for [publisher.Publisher] that records
// every snapshot it receives.
type MockPublisher struct {
	mu        sync.Mutex
	Snapshots []*models.PlaybackSnapshot
	Err       error
	Closed    bool
}

func (m *MockPublisher) Publish(ctx context.Context, snapshot *models.PlaybackSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Snapshots = append(m.Snapshots, snapshot)
	return nil
}

func (m *MockPublisher) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
}

// Published returns a copy of the recorded snapshots.
func (m *MockPublisher) Published() []*models.PlaybackSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.PlaybackSnapshot(nil), m.Snapshots...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
