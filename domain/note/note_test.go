package note

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(v int64) *int64 { return &v }

func TestDecode_Envelope(t *testing.T) {
	env, structured := Decode(`{"content":"hello","created_at":1700000000000,"updated_at":1700000005000}`)

	assert.True(t, structured)
	assert.Equal(t, "hello", env.Content)
	require.NotNil(t, env.CreatedAt)
	require.NotNil(t, env.UpdatedAt)
	assert.Equal(t, int64(1700000000000), *env.CreatedAt)
	assert.Equal(t, int64(1700000005000), *env.UpdatedAt)
}

func TestDecode_LegacyValues(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain text", raw: "just some text"},
		{name: "json string", raw: `"quoted"`},
		{name: "json array", raw: `[1,2,3]`},
		{name: "object without content", raw: `{"text":"hi"}`},
		{name: "json null", raw: `null`},
		{name: "empty", raw: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, structured := Decode(tt.raw)

			assert.False(t, structured)
			assert.Equal(t, tt.raw, env.Content)
			assert.Nil(t, env.CreatedAt)
			assert.Nil(t, env.UpdatedAt)
		})
	}
}

func TestDecode_TolerantTimestamps(t *testing.T) {
	env, structured := Decode(`{"content":"x","created_at":"2024-01-02T03:04:05.678Z","updated_at":"yesterday"}`)

	require.True(t, structured)
	require.NotNil(t, env.CreatedAt)
	expected := time.Date(2024, 1, 2, 3, 4, 5, 678000000, time.UTC).UnixMilli()
	assert.Equal(t, expected, *env.CreatedAt)
	assert.Nil(t, env.UpdatedAt)
}

func TestDecode_NullContentAndTimestamps(t *testing.T) {
	env, structured := Decode(`{"content":null,"created_at":null}`)

	assert.True(t, structured)
	assert.Equal(t, "", env.Content)
	assert.Nil(t, env.CreatedAt)
	assert.Nil(t, env.UpdatedAt)
	assert.True(t, env.IsBlank())
}

func TestDecode_NonStringContent(t *testing.T) {
	env, structured := Decode(`{"content":42}`)

	assert.True(t, structured)
	assert.Equal(t, "42", env.Content)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	original := Envelope{Content: "line one\nline two <b>", CreatedAt: ms(10), UpdatedAt: ms(20)}

	encoded, err := Encode(original)
	require.NoError(t, err)

	decoded, structured := Decode(encoded)
	assert.True(t, structured)
	assert.Equal(t, original, decoded)
}

func TestEncode_NullTimestamps(t *testing.T) {
	encoded, err := Encode(Envelope{Content: "a"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"a","created_at":null,"updated_at":null}`, encoded)
}

func TestEncode_KeepsHTMLCharactersUnescaped(t *testing.T) {
	// Arrange
	content := strings.Repeat("<", 350*1024-20)

	// Act
	encoded, err := Encode(Next(nil, content, time.UnixMilli(1)))

	// Assert
	require.NoError(t, err)
	assert.Less(t, len(encoded), len(content)+100)
	decoded, _ := Decode(encoded)
	assert.Equal(t, content, decoded.Content)
}

func TestEncode_RejectsOversizedEnvelope(t *testing.T) {
	// control characters expand to six bytes each
	_, err := Encode(Envelope{Content: strings.Repeat("\x01", 100*1024)})

	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDecode_OutOfRangeTimestamps(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "huge", raw: `{"content":"x","created_at":1e30,"updated_at":1e30}`},
		{name: "negative", raw: `{"content":"x","created_at":-5,"updated_at":-1}`},
		{name: "before epoch", raw: `{"content":"x","created_at":"1969-12-31T23:59:59Z","updated_at":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, structured := Decode(tt.raw)

			assert.True(t, structured)
			assert.Nil(t, env.CreatedAt)
			assert.Nil(t, env.UpdatedAt)
		})
	}
}

func TestNext_ReplacesNegativeCreatedAt(t *testing.T) {
	existing := &Envelope{Content: "old", CreatedAt: ms(-5)}

	env := Next(existing, "new", time.UnixMilli(9000))

	assert.Equal(t, int64(9000), *env.CreatedAt)
}

func TestNext_NewNote(t *testing.T) {
	now := time.UnixMilli(5000)

	env := Next(nil, "hello", now)

	assert.Equal(t, "hello", env.Content)
	assert.Equal(t, int64(5000), *env.CreatedAt)
	assert.Equal(t, int64(5000), *env.UpdatedAt)
}

func TestNext_KeepsCreatedAt(t *testing.T) {
	existing := &Envelope{Content: "old", CreatedAt: ms(1000), UpdatedAt: ms(2000)}

	env := Next(existing, "new", time.UnixMilli(9000))

	assert.Equal(t, int64(1000), *env.CreatedAt)
	assert.Equal(t, int64(9000), *env.UpdatedAt)
}

func TestNext_LegacyExistingGetsCreatedAt(t *testing.T) {
	existing := &Envelope{Content: "legacy"}

	env := Next(existing, "new", time.UnixMilli(9000))

	assert.Equal(t, int64(9000), *env.CreatedAt)
	assert.Equal(t, int64(9000), *env.UpdatedAt)
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("  \n\t "))
	assert.False(t, IsBlank(" a "))
}

func TestIsReserved(t *testing.T) {
	for _, name := range ReservedNames() {
		assert.True(t, IsReserved(name), name)
	}
	assert.Len(t, ReservedNames(), 6)
	assert.False(t, IsReserved("abc"))
	assert.False(t, IsReserved("Favicon.ico"))
}

func TestSortByRecency(t *testing.T) {
	summaries := []Summary{
		{Name: "legacy"},
		{Name: "old", CreatedAt: ms(100), UpdatedAt: ms(200)},
		{Name: "created-only", CreatedAt: ms(300)},
		{Name: "newest", CreatedAt: ms(100), UpdatedAt: ms(900)},
		{Name: "b-tie", UpdatedAt: ms(500)},
		{Name: "a-tie", UpdatedAt: ms(500)},
	}

	SortByRecency(summaries)

	names := make([]string, len(summaries))
	for i, s := range summaries {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"newest", "a-tie", "b-tie", "created-only", "old", "legacy"}, names)
}

func TestFromLegacy(t *testing.T) {
	now := time.UnixMilli(7000)

	plain := FromLegacy("plain text", now)
	assert.Equal(t, "plain text", plain.Content)
	assert.Equal(t, int64(7000), *plain.CreatedAt)
	assert.Equal(t, int64(7000), *plain.UpdatedAt)

	structured := FromLegacy(`{"content":"kept","created_at":1}`, now)
	assert.Equal(t, "kept", structured.Content)
	assert.Equal(t, int64(1), *structured.CreatedAt)
	assert.Nil(t, structured.UpdatedAt)
}
