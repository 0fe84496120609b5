// internal/media/media.go
//
// Thumbnail media: local acceptance, pending state, and durable upload.
//
// Context
// -------
// An admin picks an image for a brand or category.  The file is checked
// locally first (type, then size), kept as the single pending upload of
// its form instance with a data-URI preview, and only sent to the media
// host when the form is saved.  The host returns a durable URL which the
// entity record stores.
//
// Workflow
// --------
//  1. Uploader.Select(candidate) accepts or rejects the file.
//  2. Slot.Accept / Slot.Remove manage the one pending file per form.
//  3. Uploader.Commit(ctx, pending) uploads and returns the durable URL.
//     Commit never touches the Slot; callers promote on success.
//
// Notes
// -----
// • Rejections are typed (*Rejection) and also match the ErrInvalidType
//   and ErrTooLarge sentinels through errors.Is.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// DefaultMaxBytes is the largest accepted file, 2 MiB.
const DefaultMaxBytes int64 = 2 * 1024 * 1024

var (
	ErrInvalidType  = errors.New("media: file is not an image")
	ErrTooLarge     = errors.New("media: file exceeds size limit")
	ErrUploadFailed = errors.New("media: upload failed")
)

//
// Rejection
//

// Reason classifies a local rejection.
type Reason int

const (
	InvalidType Reason = iota + 1
	TooLarge
)

func (r Reason) String() string {
	switch r {
	case InvalidType:
		return "invalid_type"
	case TooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// Rejection reports why a selected file was refused.
type Rejection struct {
	Reason   Reason
	MIMEType string
	Size     int64
	Limit    int64
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case InvalidType:
		return fmt.Sprintf("media: %q is not an image type", r.MIMEType)
	case TooLarge:
		return fmt.Sprintf("media: %d bytes exceeds limit of %d", r.Size, r.Limit)
	default:
		return "media: file rejected"
	}
}

// Is lets errors.Is match the package sentinels.
func (r *Rejection) Is(target error) bool {
	switch target {
	case ErrInvalidType:
		return r.Reason == InvalidType
	case ErrTooLarge:
		return r.Reason == TooLarge
	}
	return false
}

//
// Candidate and PendingUpload
//

// Candidate is a file the user just picked.  DeclaredType is the
// Content-Type the browser sent, possibly empty.  Size is the reported
// size; when zero, len(Content) is used.
type Candidate struct {
	Filename     string
	DeclaredType string
	Size         int64
	Content      []byte
}

// PendingUpload is an accepted file waiting for Commit.
type PendingUpload struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Content  []byte `json:"content"`
}

// Preview returns a data URI the browser can render without a round trip.
func (p *PendingUpload) Preview() string {
	return "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Content)
}

//
// Thumbnail
//

// ThumbnailKind tells a template how to treat Thumbnail.Src.
type ThumbnailKind string

const (
	ThumbnailNone    ThumbnailKind = ""
	ThumbnailPreview ThumbnailKind = "preview" // data URI, never persisted
	ThumbnailDurable ThumbnailKind = "durable" // URL returned by the media host
)

// Thumbnail is the draft's image reference.
type Thumbnail struct {
	Kind ThumbnailKind `json:"kind,omitempty"`
	Src  string        `json:"src,omitempty"`
}

// DurableURL returns Src when the thumbnail was persisted, else "".
func (t Thumbnail) DurableURL() string {
	if t.Kind == ThumbnailDurable {
		return t.Src
	}
	return ""
}
