package workflow

import (
	"github.com/yanizio/catalog-admin/internal/form"
)

// DisplayLimit is the longest message shown in a toast, in characters.
const DisplayLimit = 100

// Status is the outcome of one submission.
type Status int

const (
	Success Status = iota + 1
	ValidationFailed
	UploadFailed
	CreateFailed
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case ValidationFailed:
		return "validation_failed"
	case UploadFailed:
		return "upload_failed"
	case CreateFailed:
		return "create_failed"
	default:
		return "unknown"
	}
}

// Result is returned by Submit.  Each submission gets its own value; no
// outcome is kept in shared state.
type Result struct {
	Status      Status
	EntityID    string           // Success only
	Message     string           // full message, logged as-is
	FieldErrors form.FieldErrors // ValidationFailed only
	Redirect    string           // Success only: the entity's list route
	Cause       error            // underlying error for logs, nil on Success
}

// DisplayMessage is Message cut to DisplayLimit characters.
func (r Result) DisplayMessage() string { return Truncate(r.Message, DisplayLimit) }

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
