// internal/workflow/submitter.go
//
// Create-entity-with-optional-media-upload workflow.
//
// Context
// -------
// One Submitter serves every entity kind.  The EntityDef looked up by the
// instance's kind supplies the bounds, labels, backend endpoint, and list
// route; nothing here knows about brands or categories.
//
// Submit runs strictly in order:
//
//  1. Clear the error from the previous attempt.
//  2. Validate.  On failure return ValidationFailed; no network calls.
//  3. If a file is pending, commit it.  On failure return UploadFailed and
//     skip the backend.  On success the thumbnail becomes durable.
//  4. Create (or update, in edit mode) with status “active”.
//  5. Success: drop the instance, return the entity ID, the toast text,
//     and the list route.
//  6. Failure: return CreateFailed with the first backend message.
//
// There are no automatic retries.  A failed step leaves the instance Idle
// so the admin can try again; a durable thumbnail from step 3 is kept and
// not uploaded twice.
//
// Notes
// -----
// • Full messages are logged; the display copy is cut to DisplayLimit.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/catalog-admin/internal/catalog"
	"github.com/yanizio/catalog-admin/internal/form"
	"github.com/yanizio/catalog-admin/internal/logger"
	"github.com/yanizio/catalog-admin/internal/media"
	"github.com/yanizio/catalog-admin/internal/metrics"
)

// Backend is the catalog API as the workflow uses it.  *catalog.Client
// satisfies it.
type Backend interface {
	Create(ctx context.Context, endpoint string, p catalog.Payload) (string, error)
	Update(ctx context.Context, endpoint, id string, p catalog.Payload) error
	Get(ctx context.Context, endpoint, id string) (*catalog.Entity, error)
}

// Submitter drives form instances through their lifecycle.
type Submitter struct {
	validator *form.Validator
	uploader  *media.Uploader
	backend   Backend
	instances Instances
	tr        form.Translator
}

// NewSubmitter wires the workflow.
func NewSubmitter(v *form.Validator, u *media.Uploader, b Backend, inst Instances, tr form.Translator) *Submitter {
	return &Submitter{validator: v, uploader: u, backend: b, instances: inst, tr: tr}
}

/*──────────────────────────── opening forms ────────────────────────────────*/

// Open creates and stores an empty instance for kind.
func (s *Submitter) Open(ctx context.Context, kind string) (*Instance, error) {
	if _, ok := form.Lookup(kind); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	inst := NewInstance(kind)
	if err := s.instances.Put(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// OpenExisting loads entity id from the backend into a new edit instance.
func (s *Submitter) OpenExisting(ctx context.Context, kind, id string) (*Instance, error) {
	def, ok := form.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	e, err := s.backend.Get(ctx, def.Endpoint, id)
	if err != nil {
		return nil, err
	}

	inst := NewInstance(kind)
	inst.Draft = Draft{ID: e.ID, Name: e.Name, Description: e.Description}
	if e.Thumbnail != "" {
		inst.Media.Promote(e.Thumbnail)
	}
	if err := s.instances.Put(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// Instance returns the stored instance and its definition.
func (s *Submitter) Instance(ctx context.Context, id string) (*Instance, *form.EntityDef, error) {
	inst, err := s.instances.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	def, ok := form.Lookup(inst.Kind)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownKind, inst.Kind)
	}
	return inst, def, nil
}

/*──────────────────────────── thumbnail slot ───────────────────────────────*/

// SelectFile refreshes the draft text from in, then accepts or rejects c.
// A rejection leaves the slot unchanged, records a localized error on the
// instance, and is returned as *media.Rejection.
func (s *Submitter) SelectFile(ctx context.Context, id, locale string, in form.Values, c media.Candidate) (*Instance, error) {
	release, err := s.instances.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	inst, err := s.instances.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inst.SetValues(in)
	inst.LastError = ""

	p, selErr := s.uploader.Select(c)
	if selErr != nil {
		var rej *media.Rejection
		if errors.As(selErr, &rej) {
			metrics.FileRejectionsTotal.WithLabelValues(rej.Reason.String()).Inc()
		}
		inst.LastError = Truncate(s.rejectionMessage(locale, selErr), DisplayLimit)
	} else {
		inst.Media.Accept(p)
	}

	if err := s.instances.Put(ctx, inst); err != nil {
		return nil, err
	}
	return inst, selErr
}

// RemovePending refreshes the draft text and clears the thumbnail slot.
// Safe to call when nothing is pending.
func (s *Submitter) RemovePending(ctx context.Context, id string, in form.Values) (*Instance, error) {
	release, err := s.instances.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	inst, err := s.instances.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inst.SetValues(in)
	inst.LastError = ""
	inst.Media.Remove()

	if err := s.instances.Put(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// SaveDraft stores the latest text input and nothing else.  Used when a
// request carries field values but no action the workflow acts on.
func (s *Submitter) SaveDraft(ctx context.Context, id string, in form.Values) (*Instance, error) {
	release, err := s.instances.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	inst, err := s.instances.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inst.SetValues(in)
	if err := s.instances.Put(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

/*──────────────────────────── validation ───────────────────────────────────*/

// Check validates in against the instance's entity without touching the
// instance.  Used for live per-field feedback.
func (s *Submitter) Check(ctx context.Context, id, locale string, in form.Values) (form.FieldErrors, error) {
	_, def, err := s.Instance(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.validator.Validate(def, locale, in), nil
}

// CheckField validates a single field of the instance's entity.  The
// message is empty when the value is valid.
func (s *Submitter) CheckField(ctx context.Context, id, locale, field string, in form.Values) (string, error) {
	_, def, err := s.Instance(ctx, id)
	if err != nil {
		return "", err
	}
	value, _ := in.Get(field)
	if msg, ok := s.validator.ValidateField(def, locale, field, value); !ok {
		return msg, nil
	}
	return "", nil
}

/*──────────────────────────── submission ───────────────────────────────────*/

// Submit runs the workflow once.  The error is non-nil only when the
// submission could not start (ErrBusy, unknown instance) or its state could
// not be stored; every user-facing outcome is in Result.
func (s *Submitter) Submit(ctx context.Context, id, locale string, in form.Values) (Result, error) {
	release, err := s.instances.Lock(ctx, id)
	if err != nil {
		return Result{}, err
	}
	defer release()

	inst, def, err := s.Instance(ctx, id)
	if err != nil {
		return Result{}, err
	}
	log := logger.FromContext(ctx).With("entity", inst.Kind, "instance", inst.ID)
	label := map[string]string{"entity": s.tr.T(locale, def.Label, nil)}

	// 1. Clear the previous attempt.
	inst.LastError = ""
	inst.FieldErrors = nil
	inst.SetValues(in)

	// 2. Validate.
	if err := s.enter(ctx, inst, Validating); err != nil {
		return Result{}, err
	}
	if fe := s.validator.Validate(def, locale, inst.Values()); !fe.Valid() {
		inst.FieldErrors = fe
		return s.finish(ctx, log, inst, Result{Status: ValidationFailed, FieldErrors: fe, Cause: fe}), nil
	}

	// 3. Upload the pending file, if any.
	thumb := inst.Media.Thumbnail.DurableURL()
	if inst.Media.HasPending() {
		if err := s.enter(ctx, inst, Uploading); err != nil {
			return Result{}, err
		}
		url, upErr := s.uploader.Commit(ctx, inst.Media.Pending)
		if upErr != nil {
			msg := s.tr.T(locale, "media.upload_failed", nil)
			inst.LastError = Truncate(msg, DisplayLimit)
			return s.finish(ctx, log, inst, Result{Status: UploadFailed, Message: msg, Cause: upErr}), nil
		}
		inst.Media.Promote(url)
		thumb = url
	}

	// 4. Create or update.
	if err := s.enter(ctx, inst, CreateInFlight); err != nil {
		return Result{}, err
	}
	payload := catalog.Payload{
		Name:        inst.Draft.Name,
		Description: inst.Draft.Description,
		Thumbnail:   thumb,
		Status:      catalog.StatusActive,
	}
	// An edit that removed the stored image must say so; omitting the
	// field keeps the old one.
	if inst.Editing() && thumb == "" && inst.Media.Cleared {
		payload.ClearThumbnail = true
	}

	entityID, msgKey := inst.Draft.ID, "submit.updated"
	var callErr error
	if inst.Editing() {
		callErr = s.backend.Update(ctx, def.Endpoint, inst.Draft.ID, payload)
	} else {
		msgKey = "submit.created"
		entityID, callErr = s.backend.Create(ctx, def.Endpoint, payload)
	}

	// 6. Failure.
	if callErr != nil {
		msg := backendMessage(callErr)
		if msg == "" {
			msg = s.tr.T(locale, "submit.failed", label)
		}
		inst.LastError = Truncate(msg, DisplayLimit)
		return s.finish(ctx, log, inst, Result{Status: CreateFailed, Message: msg, Cause: callErr}), nil
	}

	// 5. Success.
	res := Result{
		Status:   Success,
		EntityID: entityID,
		Message:  s.tr.T(locale, msgKey, label),
		Redirect: def.ListRoute,
	}
	if err := s.instances.Delete(ctx, inst.ID); err != nil {
		log.Warnw("form instance cleanup failed", "err", err)
	}
	s.record(log, inst, res)
	return res, nil
}

// enter moves inst to st and stores it so concurrent renders see the phase.
func (s *Submitter) enter(ctx context.Context, inst *Instance, st State) error {
	inst.State = st
	return s.instances.Put(ctx, inst)
}

// finish returns inst to Idle after a failed step.
func (s *Submitter) finish(ctx context.Context, log *zap.SugaredLogger, inst *Instance, res Result) Result {
	inst.State = Idle
	if err := s.instances.Put(ctx, inst); err != nil {
		log.Errorw("form instance save failed", "err", err)
	}
	s.record(log, inst, res)
	return res
}

func (s *Submitter) record(log *zap.SugaredLogger, inst *Instance, res Result) {
	metrics.SubmissionsTotal.WithLabelValues(inst.Kind, res.Status.String()).Inc()
	switch res.Status {
	case Success:
		log.Infow("submission succeeded", "entity_id", res.EntityID, "edit", inst.Editing())
	case ValidationFailed:
		log.Debugw("submission invalid", "fields", res.FieldErrors)
	default:
		log.Warnw("submission failed", "status", res.Status.String(), "message", res.Message, "err", res.Cause)
	}
}

/*──────────────────────────── messages ─────────────────────────────────────*/

// backendMessage extracts the first human message from a backend error.
func backendMessage(err error) string {
	var apiErr *catalog.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

func (s *Submitter) rejectionMessage(locale string, err error) string {
	switch {
	case errors.Is(err, media.ErrInvalidType):
		return s.tr.T(locale, "media.invalid_type", nil)
	case errors.Is(err, media.ErrTooLarge):
		return s.tr.T(locale, "media.too_large", map[string]string{"max": HumanBytes(s.uploader.MaxBytes())})
	default:
		return s.tr.T(locale, "media.no_file", nil)
	}
}

// HumanBytes formats n as whole MB or KB.
func HumanBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
