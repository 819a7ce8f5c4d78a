// Package archive packages a collected batch into a single dataset archive.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"portraitbot/internal/domain"
	"portraitbot/internal/infra"
	"portraitbot/internal/storage"
	"portraitbot/pkg/zip"
)

// Fetcher opens the content behind an image reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Builder stages a zip on disk, uploads it and removes the staging file.
type Builder struct {
	fetcher    Fetcher
	uploader   storage.Uploader
	stagingDir string
	logger     infra.Logger
	newID      func() string
}

func NewBuilder(fetcher Fetcher, uploader storage.Uploader, stagingDir string, logger *infra.Logger) *Builder {
	return &Builder{
		fetcher:    fetcher,
		uploader:   uploader,
		stagingDir: stagingDir,
		logger:     infra.LoggerOrDiscard(logger),
		newID:      func() string { return uuid.NewString() },
	}
}

// EntryName is the archive entry name for the i-th image of a batch.
func EntryName(i int) string {
	return fmt.Sprintf("photo%d.jpg", i)
}

// Package fetches every reference in order, writes them as photo{i}.jpg
// entries and returns the uploaded archive URL. Every failure wraps
// domain.ErrTransientIO.
func (b *Builder) Package(ctx context.Context, owner string, batch []string) (string, error) {
	if len(batch) == 0 {
		return "", errors.New("archive: empty batch")
	}
	staging, err := os.CreateTemp(b.stagingDir, "dataset-*.zip")
	if err != nil {
		return "", transient("create staging file", err)
	}
	defer func() {
		staging.Close()
		if rmErr := os.Remove(staging.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			b.logger.Warn().Err(rmErr).Str("path", staging.Name()).Msg("remove staging archive")
		}
	}()

	zw := zip.NewWriter(staging)
	for i, ref := range batch {
		if err := ctx.Err(); err != nil {
			return "", transient("package", err)
		}
		if err := b.addEntry(ctx, zw, EntryName(i), ref); err != nil {
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		return "", transient("finalize archive", err)
	}
	if _, err := staging.Seek(0, io.SeekStart); err != nil {
		return "", transient("rewind archive", err)
	}

	key := fmt.Sprintf("datasets/%s/%s.zip", owner, b.newID())
	url, err := b.uploader.Upload(ctx, key, staging, "application/zip")
	if err != nil {
		return "", transient("upload archive", err)
	}
	b.logger.Info().Str("owner", owner).Str("key", key).Int("images", len(batch)).Msg("dataset archive uploaded")
	return url, nil
}

func (b *Builder) addEntry(ctx context.Context, zw *zip.Writer, name, ref string) error {
	body, err := b.fetcher.Fetch(ctx, ref)
	if err != nil {
		return transient("fetch "+name, err)
	}
	defer body.Close()
	if _, err := zw.Add(name, body); err != nil {
		return transient("write "+name, err)
	}
	return nil
}

func transient(op string, err error) error {
	return fmt.Errorf("archive: %s: %w: %w", op, domain.ErrTransientIO, err)
}
