// Package note holds the persisted note envelope and the rules for reading
// values written by older versions of the store.
package note

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"
	"time"
)

// reservedNames share the key space with notes but belong to static assets
// served from the same origin. They are never listed or edited as notes.
var reservedNames = map[string]struct{}{
	"index.json":                               {},
	"favicon.ico":                              {},
	"apple-touch-icon.png":                     {},
	"apple-touch-icon-precomposed.png":         {},
	"apple-touch-icon-120x120.png":             {},
	"apple-touch-icon-120x120-precomposed.png": {},
}

// IsReserved reports whether name is one of the static asset keys.
func IsReserved(name string) bool {
	_, ok := reservedNames[name]
	return ok
}

// ReservedNames returns the reserved asset keys in lexical order.
func ReservedNames() []string {
	names := make([]string, 0, len(reservedNames))
	for name := range reservedNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsBlank reports whether content counts as empty. Blank notes are deleted on
// write and hidden from listings.
func IsBlank(content string) bool {
	return strings.TrimSpace(content) == ""
}

// MaxEncodedBytes is the largest encoded envelope a store item may hold. It
// leaves room under DynamoDB's 400 KB item limit for the key attributes.
const MaxEncodedBytes = 390 * 1024

// ErrTooLarge is returned by Encode when the envelope exceeds MaxEncodedBytes.
var ErrTooLarge = errors.New("note: encoded envelope too large")

// Envelope is the stored representation of a note. Timestamps are epoch
// milliseconds; nil means the value predates timestamp tracking.
type Envelope struct {
	Content   string `json:"content"`
	CreatedAt *int64 `json:"created_at"`
	UpdatedAt *int64 `json:"updated_at"`
}

// IsBlank reports whether the envelope holds blank content.
func (e Envelope) IsBlank() bool {
	return IsBlank(e.Content)
}

// LastModified returns updated_at, falling back to created_at, or 0.
func (e Envelope) LastModified() int64 {
	if e.UpdatedAt != nil {
		return *e.UpdatedAt
	}
	if e.CreatedAt != nil {
		return *e.CreatedAt
	}
	return 0
}

// Note is an envelope bound to its key.
type Note struct {
	Name string
	Envelope
}

// Summary is one row of the note listing.
type Summary struct {
	Name      string `json:"name"`
	CreatedAt *int64 `json:"created_at"`
	UpdatedAt *int64 `json:"updated_at"`
}

// Summarize drops the content of n.
func Summarize(n Note) Summary {
	return Summary{Name: n.Name, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt}
}

// WriteResult is the outcome of a write: either the stored envelope or a
// deletion caused by blank content.
type WriteResult struct {
	Envelope *Envelope
	Deleted  bool
}

// Next builds the envelope for a write of content at now. The creation time of
// existing is carried over when it is known.
func Next(existing *Envelope, content string, now time.Time) Envelope {
	updated := now.UnixMilli()
	created := updated
	if existing != nil && existing.CreatedAt != nil && *existing.CreatedAt > 0 {
		created = *existing.CreatedAt
	}
	return Envelope{
		Content:   content,
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
}

// Encode serializes e for storage. HTML characters are written as is so the
// stored size stays close to the content size.
func Encode(e Envelope) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return "", err
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	if len(data) > MaxEncodedBytes {
		return "", ErrTooLarge
	}
	return string(data), nil
}

// Decode reads a stored value. Values that are not a JSON object with a
// "content" member are legacy plain text and come back as content with nil
// timestamps; structured is false in that case.
func Decode(raw string) (env Envelope, structured bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return Envelope{Content: raw}, false
	}

	content, ok := fields["content"]
	if !ok {
		return Envelope{Content: raw}, false
	}

	env.Content = decodeContent(content)
	env.CreatedAt = decodeTimestamp(fields["created_at"])
	env.UpdatedAt = decodeTimestamp(fields["updated_at"])
	return env, true
}

func decodeContent(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	// numbers, booleans and nested values keep their JSON text
	return string(raw)
}

// decodeTimestamp accepts epoch milliseconds or an RFC 3339 string. Anything
// else, including values before the epoch or past int64, is unknown.
func decodeTimestamp(raw json.RawMessage) *int64 {
	if len(raw) == 0 {
		return nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if math.IsNaN(n) || n < 0 || n >= math.MaxInt64 {
			return nil
		}
		ms := int64(n)
		return &ms
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil && t.UnixMilli() >= 0 {
			ms := t.UnixMilli()
			return &ms
		}
	}
	return nil
}

// SortByRecency orders summaries newest first by updated_at, then
// created_at. Entries with no timestamps sort last; ties go by name.
func SortByRecency(summaries []Summary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a := Envelope{CreatedAt: summaries[i].CreatedAt, UpdatedAt: summaries[i].UpdatedAt}.LastModified()
		b := Envelope{CreatedAt: summaries[j].CreatedAt, UpdatedAt: summaries[j].UpdatedAt}.LastModified()
		if a != b {
			return a > b
		}
		return summaries[i].Name < summaries[j].Name
	})
}

// FromLegacy converts a value found under a legacy key. Envelopes are kept as
// they are; plain text is stamped with now for both timestamps.
func FromLegacy(raw string, now time.Time) Envelope {
	if env, structured := Decode(raw); structured {
		return env
	}
	created := now.UnixMilli()
	updated := created
	return Envelope{Content: raw, CreatedAt: &created, UpdatedAt: &updated}
}
