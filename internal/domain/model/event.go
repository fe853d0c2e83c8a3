package model

import "time"

// ChangeKind names the mutation a ChangeEvent describes.
type ChangeKind string

// Change kinds published on the live feed.
const (
	NoteCreated ChangeKind = "note_created"
	NoteUpdated ChangeKind = "note_updated"
	NoteDeleted ChangeKind = "note_deleted"
)

// ChangeEvent describes one successful mutation of the note store.
type ChangeEvent struct {
	EventID   string     `json:"event_id"`
	Type      ChangeKind `json:"type"`
	NoteID    ID         `json:"note_id"`
	Title     string     `json:"title,omitempty"`
	ItemCount int        `json:"item_count"`
	At        time.Time  `json:"at"`
}
