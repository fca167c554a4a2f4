package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Answer is a student's selection for one question: nothing, a single
// choice, or a list of choices. On the wire it is a JSON string or an
// array of strings.
type Answer struct {
	single   string
	multiple []string
	isList   bool
}

// SingleAnswer returns an answer holding one choice.
func SingleAnswer(choice string) Answer {
	return Answer{single: choice}
}

// MultiAnswer returns an answer holding a list of choices.
func MultiAnswer(choices ...string) Answer {
	if choices == nil {
		choices = []string{}
	}
	return Answer{multiple: choices, isList: true}
}

// IsList reports whether the answer was given as a list.
func (a Answer) IsList() bool {
	return a.isList
}

// IsEmpty reports whether no choice is selected.
func (a Answer) IsEmpty() bool {
	if a.isList {
		return len(a.multiple) == 0
	}
	return a.single == ""
}

// Normalize converts the answer to the list form sent on submission:
// empty becomes [], a single choice becomes [choice], a list is kept as-is.
func (a Answer) Normalize() []string {
	if a.isList {
		if a.multiple == nil {
			return []string{}
		}
		return a.multiple
	}
	if a.single == "" {
		return []string{}
	}
	return []string{a.single}
}

// MarshalJSON implements json.Marshaler.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.isList {
		return json.Marshal(a.Normalize())
	}
	return json.Marshal(a.single)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = Answer{}
		return nil
	case len(data) > 0 && data[0] == '[':
		var choices []string
		if err := json.Unmarshal(data, &choices); err != nil {
			return fmt.Errorf("decode answer list: %w", err)
		}
		*a = MultiAnswer(choices...)
		return nil
	default:
		var choice string
		if err := json.Unmarshal(data, &choice); err != nil {
			return fmt.Errorf("decode answer: %w", err)
		}
		*a = SingleAnswer(choice)
		return nil
	}
}
