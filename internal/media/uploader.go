package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/yanizio/catalog-admin/internal/metrics"
)

// Object is one upload as a Host sees it.  Name carries no extension;
// hosts that need one append Ext.
type Object struct {
	Folder      string
	Name        string
	Ext         string
	ContentType string
	Size        int64
	Body        *bytes.Reader
}

// Host stores an object and returns its durable URL.
type Host interface {
	Name() string
	Upload(ctx context.Context, obj Object) (string, error)
}

// Uploader applies the local acceptance rules and commits to a Host.
type Uploader struct {
	host     Host
	maxBytes int64
	folder   string
}

// NewUploader returns an Uploader.  maxBytes <= 0 selects DefaultMaxBytes.
func NewUploader(host Host, maxBytes int64, folder string) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploader{host: host, maxBytes: maxBytes, folder: folder}
}

// MaxBytes is the acceptance limit.
func (u *Uploader) MaxBytes() int64 { return u.maxBytes }

// Select checks the type, then the size, of c.  The declared type is
// trusted when present; an empty or generic declaration is replaced by
// content sniffing.
func (u *Uploader) Select(c Candidate) (*PendingUpload, error) {
	mt := mediaType(c.DeclaredType)
	if mt == "" || mt == "application/octet-stream" {
		mt = mediaType(mimetype.Detect(c.Content).String())
	}
	if !strings.HasPrefix(mt, "image/") {
		return nil, &Rejection{Reason: InvalidType, MIMEType: mt}
	}

	size := c.Size
	if size == 0 {
		size = int64(len(c.Content))
	}
	if size > u.maxBytes || int64(len(c.Content)) > u.maxBytes {
		return nil, &Rejection{Reason: TooLarge, MIMEType: mt, Size: size, Limit: u.maxBytes}
	}

	return &PendingUpload{
		Filename: path.Base(c.Filename),
		MIMEType: mt,
		Size:     size,
		Content:  c.Content,
	}, nil
}

// Commit uploads p and returns the durable URL.  Errors wrap
// ErrUploadFailed.
func (u *Uploader) Commit(ctx context.Context, p *PendingUpload) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: nothing pending", ErrUploadFailed)
	}

	obj := Object{
		Folder:      u.folder,
		Name:        objectName(p.Filename),
		Ext:         extension(p),
		ContentType: p.MIMEType,
		Size:        int64(len(p.Content)),
		Body:        bytes.NewReader(p.Content),
	}

	start := time.Now()
	url, err := u.host.Upload(ctx, obj)
	metrics.UploadDuration.WithLabelValues(u.host.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if url == "" {
		return "", fmt.Errorf("%w: %s returned no url", ErrUploadFailed, u.host.Name())
	}
	return url, nil
}

//
// helpers
//

// objectName builds “<slug>-<uuid>” from the original filename.
func objectName(filename string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	s := slug.Make(base)
	if len(s) > 40 {
		s = strings.Trim(s[:40], "-")
	}
	if s == "" {
		s = "image"
	}
	return s + "-" + uuid.NewString()
}

// extension prefers the filename's own extension, then the MIME registry.
func extension(p *PendingUpload) string {
	if ext := strings.ToLower(path.Ext(p.Filename)); ext != "" {
		return ext
	}
	if m := mimetype.Lookup(p.MIMEType); m != nil {
		return m.Extension()
	}
	return ""
}

// mediaType drops parameters such as “; charset=utf-8”.
func mediaType(ct string) string {
	mt, _, _ := strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
