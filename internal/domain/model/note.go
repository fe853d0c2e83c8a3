package model

import (
	"encoding/json"
	"errors"
	"maps"
)

// NoteIDKey is the JSON key that links an item to its note.
const NoteIDKey = "noteID"

// ErrItemNotObject is returned when an item is not a JSON object.
var ErrItemNotObject = errors.New("item must be a JSON object")

// Note is a titled container identified by an id.
type Note struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// Item is a record linked to a note through NoteID. Every other field the
// caller sent is kept as raw JSON and written back unchanged.
type Item struct {
	NoteID ID
	Fields map[string]json.RawMessage
}

// NewItem builds an item from plain Go values.
func NewItem(noteID ID, fields map[string]any) (Item, error) {
	it := Item{NoteID: noteID, Fields: make(map[string]json.RawMessage, len(fields))}
	for k, v := range fields {
		if k == NoteIDKey {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return Item{}, err
		}
		it.Fields[k] = raw
	}
	return it, nil
}

// Field returns the raw value of an extra field.
func (it Item) Field(key string) (json.RawMessage, bool) {
	v, ok := it.Fields[key]
	return v, ok
}

// Clone returns a copy that shares no map with the receiver.
func (it Item) Clone() Item {
	return Item{NoteID: it.NoteID, Fields: maps.Clone(it.Fields)}
}

// MarshalJSON flattens NoteID and Fields into one object.
func (it Item) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(it.Fields)+1)
	for k, v := range it.Fields {
		out[k] = v
	}
	id, err := it.NoteID.MarshalJSON()
	if err != nil {
		return nil, err
	}
	out[NoteIDKey] = id
	return json.Marshal(out)
}

// UnmarshalJSON splits an object into NoteID and the remaining fields.
// A missing noteID leaves NoteID zero; validation decides what that means.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return ErrItemNotObject
	}

	var id ID
	if v, ok := raw[NoteIDKey]; ok {
		if err := id.UnmarshalJSON(v); err != nil {
			return err
		}
		delete(raw, NoteIDKey)
	}

	it.NoteID = id
	it.Fields = raw
	return nil
}

// CloneItems copies a slice of items. A nil input yields an empty slice so
// that JSON encodes it as [].
func CloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
