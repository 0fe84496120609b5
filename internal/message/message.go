// internal/message/message.go
//
// Toast messages shown after a redirect.
//
// Context
//   A successful create shows "Brand created successfully." on the list
//   page; a failed one shows the backend's first error on the form.  Both
//   cross a redirect, so handlers build a Toast here and the session
//   package carries it in a flash cookie.
//
//------------------------------------------------------------------------------

package message

// Kind selects toast styling.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Toast is one transient notification.
type Toast struct {
	Kind Kind   `json:"k"`
	Text string `json:"t"`
}

// Success returns a success toast.
func Success(text string) Toast { return Toast{Kind: KindSuccess, Text: text} }

// Error returns an error toast.
func Error(text string) Toast { return Toast{Kind: KindError, Text: text} }

// Info returns a neutral toast.
func Info(text string) Toast { return Toast{Kind: KindInfo, Text: text} }

// Empty reports whether t carries nothing to show.
func (t Toast) Empty() bool { return t.Text == "" }
