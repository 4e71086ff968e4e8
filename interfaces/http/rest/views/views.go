// Package views renders the HTML pages. Templates are embedded and escaped by
// html/template.
package views

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"notepad-backend/domain/note"
)

//go:embed templates/*.html
var templateFS embed.FS

// ListingPage is the data of the note listing.
type ListingPage struct {
	Notes []note.Summary
	// Unavailable is set when the notes could not be enumerated.
	Unavailable bool
}

// EditorPage is the data of the note editor.
type EditorPage struct {
	Note note.Note
	// Persisted is false for a name that has no stored note yet.
	Persisted bool
}

// Renderer executes the embedded page templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	t, err := template.New("pages").Funcs(template.FuncMap{
		"noteURL": NoteURL,
		"ts":      timestamp,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: t}, nil
}

// Listing renders the note listing.
func (r *Renderer) Listing(w io.Writer, page ListingPage) error {
	return r.templates.ExecuteTemplate(w, "listing.html", page)
}

// Editor renders the editor for one note.
func (r *Renderer) Editor(w io.Writer, page EditorPage) error {
	return r.templates.ExecuteTemplate(w, "editor.html", page)
}

// NoteURL returns the path of a note. Each segment is escaped; slashes inside
// the name stay path separators.
func NoteURL(name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(segments, "/")
}

func timestamp(ms *int64) string {
	if ms == nil {
		return ""
	}
	return strconv.FormatInt(*ms, 10)
}
