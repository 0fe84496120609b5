// internal/workflow/instance.go
//
// Form instances: the server-side state of one open create or edit form.
//
// Context
// -------
// Every time an admin opens a “new” or “edit” page a fresh Instance is
// created and stored under an opaque ID that the page carries in its form
// action.  The instance owns its draft, its single thumbnail slot, its
// workflow state, and the last error shown to the user.  Nothing is shared
// between instances.
//
// Concurrency
// -----------
// Mutations go through Instances.Lock, which admits one holder per ID.
// A second submit (or a file selection) while one is in flight gets
// ErrBusy.  The lock, not the State field, is the guard; State exists so a
// concurrent page render can show the submit control as disabled.
//
// Notes
// -----
// • Instances serialize to JSON so the Redis store can hold them.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/catalog-admin/internal/form"
	"github.com/yanizio/catalog-admin/internal/media"
)

var (
	ErrBusy             = errors.New("workflow: a submission is already in progress")
	ErrInstanceNotFound = errors.New("workflow: form instance not found")
	ErrUnknownKind      = errors.New("workflow: unknown entity kind")
)

// Draft is the editable entity under construction.  ID is set in edit
// mode only.
type Draft struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Instance is one open form.
type Instance struct {
	ID          string           `json:"id"`
	Kind        string           `json:"kind"`
	Draft       Draft            `json:"draft"`
	Media       media.Slot       `json:"media"`
	State       State            `json:"state"`
	FieldErrors form.FieldErrors `json:"field_errors,omitempty"`
	LastError   string           `json:"last_error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewInstance returns an Idle instance for kind with a random ID.
func NewInstance(kind string) *Instance {
	return &Instance{
		ID:        uuid.NewString(),
		Kind:      kind,
		State:     Idle,
		CreatedAt: time.Now().UTC(),
	}
}

// Values returns the draft's text fields.
func (i *Instance) Values() form.Values {
	return form.Values{Name: i.Draft.Name, Description: i.Draft.Description}
}

// SetValues copies normalized input into the draft.
func (i *Instance) SetValues(v form.Values) {
	v = v.Normalize()
	i.Draft.Name = v.Name
	i.Draft.Description = v.Description
}

// Editing reports whether the instance updates an existing entity.
func (i *Instance) Editing() bool { return i.Draft.ID != "" }

// Busy reports whether a submission step is running.
func (i *Instance) Busy() bool { return i.State != Idle }

// Instances persists form instances between requests.
type Instances interface {
	Get(ctx context.Context, id string) (*Instance, error)
	Put(ctx context.Context, inst *Instance) error
	Delete(ctx context.Context, id string) error
	// Lock admits one holder per id.  It returns ErrBusy when held.
	Lock(ctx context.Context, id string) (release func(), err error)
}
