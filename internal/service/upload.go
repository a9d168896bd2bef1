package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"path"
	"strings"
	"time"

	"notebook/internal/blob"
	"notebook/internal/errs"
	"notebook/internal/models"
)

// FilesPrefix is the URL path under which uploaded objects are served.
const FilesPrefix = "/files/"

// Uploader forwards files to the blob store as-is under a generated key.
type Uploader struct {
	blobs   blob.Store
	baseURL string
	now     func() time.Time
	log     *slog.Logger
}

func NewUploader(blobs blob.Store, baseURL string, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		blobs:   blobs,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		log:     logger,
	}
}

func (u *Uploader) Upload(ctx context.Context, filename, contentType string, r io.Reader) (*models.Attachment, error) {
	key := ObjectKey(filename, u.now())
	if err := u.blobs.Put(ctx, key, r, contentType); err != nil {
		return nil, errs.Upload(err, "store upload")
	}
	u.log.Info("stored upload", "path", key, "filename", filename)
	return &models.Attachment{URL: u.URLFor(key), Path: key}, nil
}

// URLFor returns the public URL of an object key.
func (u *Uploader) URLFor(key string) string {
	return u.baseURL + FilesPrefix + key
}

// ObjectKey builds notes/<unix-millis>-<random>.<extension> from the client's filename.
// The extension is whatever follows the last dot, or the whole name when there is none,
// so "README" keeps "README" as its extension rather than falling back to "bin".
func ObjectKey(filename string, t time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext = name[i+1:]
	}
	ext = sanitizeExt(ext)
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("notes/%d-%s.%s", t.UnixMilli(), randomSuffix(6), ext)
}

func sanitizeExt(ext string) string {
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return string(b)
}
