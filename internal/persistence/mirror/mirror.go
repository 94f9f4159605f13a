package mirror

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Uploader is the subset of Client the mirror needs.
type Uploader interface {
	PutFile(ctx context.Context, key, localPath string) error
}

type Stats struct {
	Queued    int
	Enqueued  uint64
	Dropped   uint64
	Uploaded  uint64
	Failed    uint64
	LastError string
}

type job struct {
	key  string
	path string
}

// Mirror uploads files under dataDir, keyed by prefix plus their path
// relative to dataDir. Uploads run on background workers; Enqueue never
// blocks longer than the configured wait.
type Mirror struct {
	up      Uploader
	dataDir string
	prefix  string
	wait    time.Duration
	retries int
	logger  *log.Logger

	jobs chan job
	wg   sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

func New(up Uploader, dataDir, prefix string, workers, capacity int, wait time.Duration, logger *log.Logger) *Mirror {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 64
	}
	if wait <= 0 {
		wait = 25 * time.Millisecond
	}
	m := &Mirror{
		up:      up,
		dataDir: dataDir,
		prefix:  strings.Trim(filepath.ToSlash(prefix), "/"),
		wait:    wait,
		retries: 4,
		logger:  logger,
		jobs:    make(chan job, capacity),
	}
	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.worker()
	}
	return m
}

func (m *Mirror) Enqueue(localPath string) error {
	key, err := m.key(localPath)
	if err != nil {
		return err
	}
	m.update(func(s *Stats) { s.Enqueued++ })

	timer := time.NewTimer(m.wait)
	defer timer.Stop()
	select {
	case m.jobs <- job{key: key, path: localPath}:
		return nil
	case <-timer.C:
		m.update(func(s *Stats) { s.Dropped++ })
		m.printf("mirror drop %s: queue full", localPath)
		return fmt.Errorf("mirror queue full")
	}
}

// Close waits for queued uploads to finish.
func (m *Mirror) Close() {
	close(m.jobs)
	m.wg.Wait()
}

func (m *Mirror) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Queued = len(m.jobs)
	return s
}

func (m *Mirror) worker() {
	defer m.wg.Done()
	for j := range m.jobs {
		if err := m.upload(j); err != nil {
			m.update(func(s *Stats) { s.Failed++; s.LastError = err.Error() })
			m.printf("mirror upload %s failed: %v", j.key, err)
			continue
		}
		m.update(func(s *Stats) { s.Uploaded++ })
		m.printf("mirror uploaded %s", j.key)
	}
}

func (m *Mirror) upload(j job) error {
	var err error
	for attempt := 1; attempt <= m.retries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = m.up.PutFile(ctx, j.key, j.path)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < m.retries {
			time.Sleep(time.Duration(attempt*attempt) * 200 * time.Millisecond)
		}
	}
	return err
}

func (m *Mirror) key(localPath string) (string, error) {
	base, err := filepath.Abs(m.dataDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", abs, base)
	}
	if m.prefix == "" {
		return rel, nil
	}
	return path.Join(m.prefix, rel), nil
}

func (m *Mirror) update(f func(*Stats)) {
	m.mu.Lock()
	f(&m.stats)
	m.mu.Unlock()
}

func (m *Mirror) printf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
