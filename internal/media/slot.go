package media

// Slot is the thumbnail state of one form instance: at most one pending
// file plus the thumbnail the form displays.  A Preview becomes Durable
// exactly once, through Promote, and never goes back.
//
// Cleared records an explicit Remove that no later Promote has undone.
// An edit form uses it to tell "image removed" from "image unchanged".
type Slot struct {
	Pending   *PendingUpload `json:"pending,omitempty"`
	Thumbnail Thumbnail      `json:"thumbnail"`
	Cleared   bool           `json:"cleared,omitempty"`
}

// Accept replaces any previous pending file with p and shows its preview.
func (s *Slot) Accept(p *PendingUpload) {
	s.Pending = p
	s.Thumbnail = Thumbnail{Kind: ThumbnailPreview, Src: p.Preview()}
}

// Remove clears the pending file and the thumbnail.  Calling it again
// leaves the slot as it is.
func (s *Slot) Remove() {
	s.Pending = nil
	s.Thumbnail = Thumbnail{}
	s.Cleared = true
}

// Promote records a successful upload.
func (s *Slot) Promote(url string) {
	s.Pending = nil
	s.Thumbnail = Thumbnail{Kind: ThumbnailDurable, Src: url}
	s.Cleared = false
}

// HasPending reports whether a file still needs to be committed.
func (s *Slot) HasPending() bool { return s.Pending != nil }
