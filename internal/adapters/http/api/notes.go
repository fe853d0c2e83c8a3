package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okian/trapperkeeper/internal/adapters/repository"
	"github.com/okian/trapperkeeper/internal/domain/model"
	"github.com/okian/trapperkeeper/internal/domain/notes"
	"github.com/okian/trapperkeeper/internal/domain/types"
	"github.com/okian/trapperkeeper/pkg/logger"
	"github.com/okian/trapperkeeper/pkg/metrics"
)

// Client-facing messages.
const (
	msgGetMiss    = "That note does not exist!"
	msgDeleteMiss = "That note does not exist, nothing was deleted"
	msgUpdateMiss = "That note does not exist, nothing was edited"
	msgTooLarge   = "Request body too large"
	msgInternal   = "Something went wrong"
)

// IdempotencyHeader names the optional header that makes a create safe to
// retry.
const IdempotencyHeader = "Idempotency-Key"

// idempotencySpace seeds the ids derived from idempotency keys.
var idempotencySpace = uuid.MustParse("1f0b6a8e-8a34-4e0a-9d7c-1c1d3f0e5a72")

// NotesHandler serves /api/v1/notes and /api/v1/notes/{id}.
type NotesHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	logger       logger.Logger
}

// NewNotesHandler creates a notes handler.
func NewNotesHandler(deps Dependencies, maxBodyBytes int64, l logger.Logger) *NotesHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	if l == nil {
		l = logger.GetOrNop()
	}
	return &NotesHandler{deps: deps, maxBodyBytes: maxBodyBytes, logger: l}
}

// HandleCollection handles GET and POST on /api/v1/notes.
func (h *NotesHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// HandleNote handles GET, PUT and DELETE on /api/v1/notes/{id}.
func (h *NotesHandler) HandleNote(w http.ResponseWriter, r *http.Request) {
	// The escaped path keeps %2F inside an id apart from a real separator.
	raw := strings.TrimPrefix(r.URL.EscapedPath(), notesPath+"/")
	if raw == "" {
		h.HandleCollection(w, r)
		return
	}
	if strings.Contains(raw, "/") {
		http.NotFound(w, r)
		return
	}
	id, err := url.PathUnescape(raw)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		methodNotAllowed(w, "GET, PUT, DELETE")
	}
}

func (h *NotesHandler) list(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_notes"
	listing, err := h.deps.List(r.Context())
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *NotesHandler) create(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_note"
	ctx := r.Context()

	body, err := h.readBody(w, r)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	// Title presence is judged on the raw object so a missing title wins
	// over type errors elsewhere in the body.
	if err := requireTitle(body); err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	var req types.CreateNote
	if err := json.Unmarshal(body, &req); err != nil {
		h.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key != "" && req.ID.IsZero() {
		req.ID = model.StringID(uuid.NewSHA1(idempotencySpace, []byte(key)).String())
	}

	echo, replayed, err := h.deps.CreateOnce(ctx, key, req)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	if replayed {
		h.logger.Debug(ctx, "idempotent replay", logger.String("key", key))
		writeJSON(w, http.StatusOK, echo)
		return
	}
	writeJSON(w, http.StatusCreated, echo)
}

func (h *NotesHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.get_note"
	note, err := h.deps.Get(r.Context(), id)
	if err != nil {
		h.failLookup(w, r, Wrap(op, err), msgGetMiss)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *NotesHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.delete_note"
	if err := h.deps.Delete(r.Context(), id); err != nil {
		h.failLookup(w, r, Wrap(op, err), msgDeleteMiss)
		return
	}
	writeMessage(w, http.StatusAccepted, fmt.Sprintf("Note %s has been deleted successfully", id))
}

func (h *NotesHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.update_note"

	var req types.UpdateNote
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	if err := h.deps.Update(r.Context(), id, req); err != nil {
		h.failLookup(w, r, Wrap(op, err), msgUpdateMiss)
		return
	}
	writeMessage(w, http.StatusAccepted, fmt.Sprintf("Note %s has been updated", id))
}

// decode reads a capped body into v.
func (h *NotesHandler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := h.readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return WrapKind("api.decode", ErrBadRequest, err)
	}
	return nil
}

// readBody reads a capped body. An empty body reads as {} so that a bare
// POST reports the missing title rather than a syntax error.
func (h *NotesHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, WrapKind("api.read_body", ErrTooLarge, err)
		}
		return nil, WrapKind("api.read_body", ErrBadRequest, err)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}
	return body, nil
}

// requireTitle rejects bodies that are not JSON objects and objects whose
// title is absent or falsy.
func requireTitle(body []byte) error {
	const op = "api.require_title"

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if fields == nil {
		return NewKind(op, ErrBadRequest)
	}
	if notes.TitleMissing(fields["title"]) {
		metrics.RecordValidationFailure()
		return notes.NoTitleError()
	}
	return nil
}

func (h *NotesHandler) failLookup(w http.ResponseWriter, r *http.Request, err error, miss string) {
	if errors.Is(err, repository.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, miss)
		return
	}
	h.fail(w, r, err)
}

// fail maps err to a status and a JSON string body.
func (h *NotesHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *notes.ValidationError
	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusUnprocessableEntity, verr.Msg)
	case errors.Is(err, ErrTooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, msgTooLarge)
	case errors.Is(err, ErrBadRequest):
		writeMessage(w, http.StatusBadRequest, badRequestMessage(err))
	default:
		h.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

func badRequestMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrItemNotObject):
		return "Every item must be a JSON object"
	case errors.Is(err, model.ErrInvalidID):
		return "Ids must be strings or numbers"
	default:
		return "Malformed JSON body"
	}
}
