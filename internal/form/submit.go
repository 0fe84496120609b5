// internal/form/submit.go
//
// Forms subsystem: request parsing.
//
// Context
//   Every POST against an open form instance carries the text fields and
//   the CSRF token, whether the button pressed was save, upload, or remove.
//   Uploads arrive as multipart, everything else as urlencoded.  ParseValues
//   handles both so handlers can always refresh the draft from the latest
//   input before acting on it.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"net/http"
	"strings"
)

// multipartMemory caps the in-memory part of a multipart parse.  Larger
// parts spill to temp files.
const multipartMemory = 4 << 20

// ParseValues parses r and returns the draft values and the CSRF token.
func ParseValues(r *http.Request) (Values, string, error) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return Values{}, "", err
	}

	v := Values{
		Name:        r.PostFormValue(FieldName),
		Description: r.PostFormValue(FieldDescription),
	}
	return v, r.PostFormValue("csrf_token"), nil
}
