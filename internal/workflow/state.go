package workflow

import (
	"encoding/json"
	"fmt"
)

// State is the submission phase of a form instance.
//
//	Idle → Validating → Idle                      (validation failed)
//	                  → Uploading → Idle          (upload failed)
//	                              → CreateInFlight → Idle
//	                  → CreateInFlight → Idle     (no pending file)
type State int

const (
	Idle State = iota
	Validating
	Uploading
	CreateInFlight
)

var stateNames = [...]string{"idle", "validating", "uploading", "create_in_flight"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalJSON stores the name so Redis payloads stay readable.
func (s State) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for i, n := range stateNames {
		if n == name {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("workflow: unknown state %q", name)
}
