package mirror

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeUploader struct {
	mu    sync.Mutex
	keys  []string
	fails int
}

func (f *fakeUploader) PutFile(_ context.Context, key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("unavailable")
	}
	f.keys = append(f.keys, key)
	return nil
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("snap"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestMirrorUploadsWithPrefixAndRetries(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "snapshots", "000000003000.snap.zst")
	writeFile(t, local)

	up := &fakeUploader{fails: 1}
	m := New(up, dir, "/colony-a/", 1, 4, time.Second, nil)
	if err := m.Enqueue(local); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	m.Close()

	if len(up.keys) != 1 || up.keys[0] != "colony-a/snapshots/000000003000.snap.zst" {
		t.Fatalf("keys=%v", up.keys)
	}
	if s := m.Stats(); s.Uploaded != 1 || s.Failed != 0 || s.Enqueued != 1 {
		t.Fatalf("stats=%+v", s)
	}
}

func TestMirrorRejectsPathOutsideDataDir(t *testing.T) {
	m := New(&fakeUploader{}, t.TempDir(), "", 1, 1, time.Millisecond, nil)
	defer m.Close()
	if err := m.Enqueue(filepath.Join(t.TempDir(), "x.snap.zst")); err == nil {
		t.Fatalf("expected error for path outside data dir")
	}
}

type recordingTransport struct {
	mu   sync.Mutex
	reqs []string
	body []byte
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req.Method+" "+req.URL.Path)
	if req.Body != nil {
		r.body, _ = io.ReadAll(req.Body)
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {`"etag"`}}, Request: req}, nil
}

func TestClientPutFileUsesPathStyle(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "a.snap.zst")
	writeFile(t, local)

	rt := &recordingTransport{}
	c, err := NewClient(context.Background(), Config{
		Bucket:          "bucket",
		Endpoint:        "https://s3.test.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := c.PutFile(context.Background(), "snapshots/a.snap.zst", local); err != nil {
		t.Fatalf("put: %v", err)
	}
	if len(rt.reqs) != 1 || rt.reqs[0] != "PUT /bucket/snapshots/a.snap.zst" {
		t.Fatalf("requests=%v", rt.reqs)
	}
	if !bytes.Contains(rt.body, []byte("snap")) {
		t.Fatalf("body=%q", rt.body)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("COLONY_S3_BUCKET", "")
	if _, ok := ConfigFromEnv(); ok {
		t.Fatalf("no bucket should disable the mirror")
	}
	t.Setenv("COLONY_S3_BUCKET", "b")
	t.Setenv("COLONY_S3_PATH_STYLE", "TRUE")
	cfg, ok := ConfigFromEnv()
	if !ok || cfg.Bucket != "b" || !cfg.PathStyle {
		t.Fatalf("cfg=%+v ok=%v", cfg, ok)
	}
}
