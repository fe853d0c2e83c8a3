// Package types contains the request and response shapes of the notes API.
package types

import "github.com/okian/trapperkeeper/internal/domain/model"

// Listing is the body of GET /api/v1/notes.
type Listing struct {
	Notes []model.Note `json:"notes"`
	Items []model.Item `json:"items"`
}

// NoteWithItems is the body of GET /api/v1/notes/{id}.
type NoteWithItems struct {
	Note  model.Note   `json:"note"`
	Items []model.Item `json:"items"`
}

// CreateNote is both the body of POST /api/v1/notes and its echoed reply.
type CreateNote struct {
	ID    model.ID     `json:"id"`
	Title string       `json:"title"`
	Items []model.Item `json:"items"`
}

// UpdateNote is the body of PUT /api/v1/notes/{id}.
type UpdateNote struct {
	Title string       `json:"title"`
	Items []model.Item `json:"items"`
}
