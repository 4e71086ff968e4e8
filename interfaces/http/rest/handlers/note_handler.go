package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"notepad-backend/domain/note"
	"notepad-backend/interfaces/http/rest/views"
	apperrors "notepad-backend/pkg/errors"
	"notepad-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes bounds the body of a note write.
const DefaultMaxBodyBytes = 350 * 1024

// NoteService is what the handler needs from the note service.
type NoteService interface {
	Get(ctx context.Context, name string) (*note.Note, error)
	Raw(ctx context.Context, name string) (string, error)
	Put(ctx context.Context, name, content string) (*note.WriteResult, error)
	List(ctx context.Context) ([]note.Summary, error)
}

// NoteHandler handles the note pages and the note write endpoint.
type NoteHandler struct {
	notes        NoteService
	views        *views.Renderer
	errors       *apperrors.ErrorHandler
	logger       *zap.Logger
	maxBodyBytes int64
	newName      func() string
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(
	notes NoteService,
	renderer *views.Renderer,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
	maxBodyBytes int64,
) *NoteHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &NoteHandler{
		notes:        notes,
		views:        renderer,
		errors:       errorHandler,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
		newName:      randomName,
	}
}

// noteRequest carries the name of the addressed note.
type noteRequest struct {
	Name string `validate:"required,maxbytes=512,utf8"`
}

// saveNoteRequest represents the JSON body of a note write
type saveNoteRequest struct {
	Text *string `json:"text" validate:"required"`
}

// deletedResponse is returned when a blank write removed the note.
type deletedResponse struct {
	Deleted bool `json:"deleted"`
}

// Index handles GET /
func (h *NoteHandler) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch {
	case q.Has("new"):
		http.Redirect(w, r, views.NoteURL(h.newName()), http.StatusFound)
	case q.Get("note") != "":
		name := q.Get("note")
		if err := validateName(name); err != nil {
			h.errors.Handle(w, r, err)
			return
		}
		h.show(w, r, name)
	case q.Has("list"):
		h.listJSON(w, r)
	default:
		h.listHTML(w, r)
	}
}

// Show handles GET /{name}
func (h *NoteHandler) Show(w http.ResponseWriter, r *http.Request) {
	name, err := nameFromPath(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.show(w, r, name)
}

// Save handles POST /{name}
func (h *NoteHandler) Save(w http.ResponseWriter, r *http.Request) {
	name, err := nameFromPath(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	text, err := h.readText(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.notes.Put(r.Context(), name, text)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if result.Deleted {
		h.respondJSON(w, http.StatusOK, deletedResponse{Deleted: true})
		return
	}
	h.respondJSON(w, http.StatusOK, result.Envelope)
}

func (h *NoteHandler) show(w http.ResponseWriter, r *http.Request, name string) {
	if note.IsReserved(name) {
		h.errors.Handle(w, r, apperrors.NewNotFoundError("note '"+name+"'"))
		return
	}

	if r.URL.Query().Has("raw") {
		content, err := h.notes.Raw(r.Context(), name)
		if err != nil {
			h.errors.Handle(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, content)
		return
	}

	page := views.EditorPage{Note: note.Note{Name: name}}
	n, err := h.notes.Get(r.Context(), name)
	switch {
	case err == nil:
		page.Note = *n
		page.Persisted = true
	case apperrors.IsNotFound(err):
		// shown empty; nothing is stored until the first non-blank write
	default:
		h.errors.Handle(w, r, err)
		return
	}

	h.renderHTML(w, r, http.StatusOK, func(w io.Writer) error { return h.views.Editor(w, page) })
}

func (h *NoteHandler) listJSON(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.notes.List(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.respondJSON(w, http.StatusOK, summaries)
}

func (h *NoteHandler) listHTML(w http.ResponseWriter, r *http.Request) {
	page := views.ListingPage{}
	summaries, err := h.notes.List(r.Context())
	if err != nil {
		h.logger.Warn("Note listing unavailable", zap.Error(err))
		page.Unavailable = true
	} else {
		page.Notes = summaries
	}

	w.Header().Set("Cache-Control", "no-store")
	h.renderHTML(w, r, http.StatusOK, func(w io.Writer) error { return h.views.Listing(w, page) })
}

// readText extracts the note text from a JSON body, a form field or the raw
// body, depending on the content type.
func (h *NoteHandler) readText(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		var req saveNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", bodyError(err, h.maxBodyBytes, "invalid JSON body")
		}
		if err := utils.ValidateStruct(req); err != nil {
			return "", apperrors.NewValidationError(err.Error())
		}
		return *req.Text, nil

	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(h.maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return "", bodyError(err, h.maxBodyBytes, "invalid form body")
		}
		values, ok := r.PostForm["text"]
		if !ok || len(values) == 0 {
			return "", apperrors.NewValidationError("text is required")
		}
		return values[0], nil

	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return "", bodyError(err, h.maxBodyBytes, "failed to read body")
		}
		return string(body), nil
	}
}

func (h *NoteHandler) renderHTML(w http.ResponseWriter, r *http.Request, status int, render func(io.Writer) error) {
	var buf strings.Builder
	if err := render(&buf); err != nil {
		h.errors.Handle(w, r, apperrors.NewInternalError("failed to render page").WithCause(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, buf.String())
}

// respondJSON sends a JSON response
func (h *NoteHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// nameFromPath returns the unescaped request path without its leading slash.
// The escaped form is decoded once here so that "%2F" and "/" both end up as
// a slash inside the name. A RawPath set upstream is used even when it does
// not decode; EscapedPath would silently fall back to re-escaping Path.
func nameFromPath(r *http.Request) (string, error) {
	escaped := r.URL.RawPath
	if escaped == "" {
		escaped = r.URL.EscapedPath()
	}
	escaped = strings.TrimPrefix(escaped, "/")
	name, err := url.PathUnescape(escaped)
	if err != nil {
		return "", apperrors.NewValidationError("invalid note name encoding")
	}
	if err := validateName(name); err != nil {
		return "", err
	}
	return name, nil
}

func validateName(name string) error {
	if err := utils.ValidateStruct(noteRequest{Name: name}); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

func bodyError(err error, limit int64, message string) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.NewTooLargeError("request body", limit)
	}
	return apperrors.NewValidationError(message).WithCause(err)
}

// randomName returns a short name for a new note.
func randomName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
