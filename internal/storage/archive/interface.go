// Package archive stores rendered chart snapshots.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/newthinker/cryptodash/internal/config"
	"github.com/newthinker/cryptodash/internal/core"
)

// ErrNotFound is returned by Get for a key that holds no snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Archive is a write-mostly blob store keyed by slash-separated paths.
type Archive interface {
	// Put stores data at key, replacing any previous snapshot.
	Put(ctx context.Context, key, contentType string, data []byte) error

	// Get returns the data at key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// SnapshotKey is where the chart of one session is kept.
func SnapshotKey(session, chart string) string {
	return path.Join("live", session, chart+".png")
}

// cleanKey normalizes key and rejects keys that leave the archive root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("empty archive key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("archive key %q escapes root", key)
	}
	return k, nil
}

// New builds the archive named by cfg.
func New(cfg config.ArchiveConfig) (Archive, error) {
	switch cfg.Type {
	case "", "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type %q", cfg.Type))
	}
}
