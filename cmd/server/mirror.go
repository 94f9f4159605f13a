package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Soulycoris/ts-screep/internal/persistence/mirror"
)

type mirrorRuntime struct {
	enabled      bool
	rotateLayout string
	mirror       *mirror.Mirror
}

// buildMirrorRuntime wires the S3 mirror when COLONY_S3_BUCKET is set.
func buildMirrorRuntime(ctx context.Context, dataDir string, logger *log.Logger) (*mirrorRuntime, error) {
	cfg, ok := mirror.ConfigFromEnv()
	if !ok {
		return &mirrorRuntime{enabled: false}, nil
	}
	client, err := mirror.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	workers := envInt("COLONY_S3_UPLOAD_WORKERS", 2)
	prefix := strings.TrimSpace(os.Getenv("COLONY_S3_PREFIX"))
	m := mirror.New(client, dataDir, prefix, workers, 256, 50*time.Millisecond, logger)
	logger.Printf("mirror enabled bucket=%s prefix=%q workers=%d", cfg.Bucket, prefix, workers)
	return &mirrorRuntime{
		enabled:      true,
		rotateLayout: "2006-01-02-15-04", // 1-minute segments to lower RPO.
		mirror:       m,
	}, nil
}

func (r *mirrorRuntime) Close() {
	if r == nil || r.mirror == nil {
		return
	}
	r.mirror.Close()
}

func (r *mirrorRuntime) Enqueue(localPath string) {
	if r == nil || !r.enabled || r.mirror == nil {
		return
	}
	_ = r.mirror.Enqueue(localPath)
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
