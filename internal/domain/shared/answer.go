package shared

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidAnswerValue = errors.New("answer value must be a choice index or a text value")

// AnswerValue is a tagged variant holding either a selected option index
// (choice questions) or a free-text value (text questions). The tag removes
// any need for type inspection in the scorer.
type AnswerValue struct {
	Choice *int    `json:"choice,omitempty"`
	Text   *string `json:"text,omitempty"`
}

// ChoiceAnswer builds an AnswerValue for a selected option index
func ChoiceAnswer(index int) AnswerValue {
	return AnswerValue{Choice: &index}
}

// TextAnswer builds an AnswerValue for a free-text response
func TextAnswer(value string) AnswerValue {
	return AnswerValue{Text: &value}
}

// IsChoice reports whether the value carries an option index
func (v AnswerValue) IsChoice() bool { return v.Choice != nil }

// IsEmpty reports whether neither variant is set (skipped question)
func (v AnswerValue) IsEmpty() bool { return v.Choice == nil && v.Text == nil }

// Equal compares two answer values variant-by-variant
func (v AnswerValue) Equal(other AnswerValue) bool {
	switch {
	case v.Choice != nil && other.Choice != nil:
		return *v.Choice == *other.Choice
	case v.Text != nil && other.Text != nil:
		return *v.Text == *other.Text
	}
	return false
}

// Validate rejects values that set both variants or neither
func (v AnswerValue) Validate() error {
	if v.Choice != nil && v.Text != nil {
		return ErrInvalidAnswerValue
	}
	if v.Choice != nil && *v.Choice < 0 {
		return fmt.Errorf("%w: negative choice index %d", ErrInvalidAnswerValue, *v.Choice)
	}
	return nil
}

func (v AnswerValue) String() string {
	switch {
	case v.Choice != nil:
		return fmt.Sprintf("choice(%d)", *v.Choice)
	case v.Text != nil:
		return fmt.Sprintf("text(%q)", *v.Text)
	}
	return "none"
}

// MarshalJSON keeps the wire form compact: a bare number for choices,
// a bare string for text, null for skipped.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.Choice != nil:
		return json.Marshal(*v.Choice)
	case v.Text != nil:
		return json.Marshal(*v.Text)
	}
	return []byte("null"), nil
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	// null must be handled before the numeric probe: unmarshalling null into
	// an int is a no-op that reports success, which would turn a skipped
	// answer into choice 0.
	if string(data) == "null" {
		v.Choice = nil
		v.Text = nil
		return nil
	}
	var idx int
	if err := json.Unmarshal(data, &idx); err == nil {
		v.Choice = &idx
		v.Text = nil
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		v.Text = &text
		v.Choice = nil
		return nil
	}
	return ErrInvalidAnswerValue
}
