// Package notes holds the validation rules applied to note payloads before
// they reach the store.
package notes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/okian/trapperkeeper/internal/domain/model"
	"github.com/okian/trapperkeeper/internal/domain/types"
)

// MsgNoTitle is returned to clients that create or update a note without a title.
const MsgNoTitle = "No note title provided"

// ErrValidation is the kind shared by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError carries the client-facing reason a payload was rejected.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NoTitleError returns the validation error for a payload without a title.
func NoTitleError() error { return invalid(MsgNoTitle) }

// TitleMissing reports whether a raw title value counts as absent: no
// value at all, null, false, an empty string or the number zero.
func TitleMissing(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return true
	}
	switch raw[0] {
	case 'n':
		return string(raw) == "null"
	case 'f':
		return string(raw) == "false"
	case '"':
		var s string
		return json.Unmarshal(raw, &s) == nil && s == ""
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		return json.Unmarshal(raw, &f) == nil && f == 0
	}
	return false
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithStrictItems requires every item to reference the note it is sent with.
// When disabled, items only need a noteID of their own.
func WithStrictItems(strict bool) Option {
	return func(v *Validator) {
		v.strictItems = strict
	}
}

// Validator checks create and update payloads.
type Validator struct {
	strictItems bool
}

// NewValidator creates a validator. Strict item checking is on by default.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{strictItems: true}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// StrictItems reports whether item note ids must match their note.
func (v *Validator) StrictItems() bool { return v.strictItems }

// ValidateCreate checks a POST body.
func (v *Validator) ValidateCreate(req types.CreateNote) error {
	if req.Title == "" {
		return invalid(MsgNoTitle)
	}
	return v.validateItems(req.Items, func(it model.Item) bool {
		return it.NoteID.Equal(req.ID)
	}, req.ID.String())
}

// ValidateUpdate checks a PUT body addressed to the raw path id.
func (v *Validator) ValidateUpdate(pathID string, req types.UpdateNote) error {
	if req.Title == "" {
		return invalid(MsgNoTitle)
	}
	return v.validateItems(req.Items, func(it model.Item) bool {
		return it.NoteID.Matches(pathID)
	}, pathID)
}

func (v *Validator) validateItems(items []model.Item, belongs func(model.Item) bool, target string) error {
	for i, it := range items {
		if it.NoteID.IsZero() {
			return invalid("Item %d has no noteID", i)
		}
		if v.strictItems && !belongs(it) {
			return invalid("Item %d belongs to note %s, not %s", i, it.NoteID, target)
		}
	}
	return nil
}
