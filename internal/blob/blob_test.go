package blob

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentKey(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain", "spec.pdf", "orgs/o1/documents/d1/a1/spec.pdf"},
		{"strips directories", "../../etc/passwd", "orgs/o1/documents/d1/a1/passwd"},
		{"windows path", `C:\tmp\notes.txt`, "orgs/o1/documents/d1/a1/notes.txt"},
		{"escapes spaces", "q3 plan.md", "orgs/o1/documents/d1/a1/q3%20plan.md"},
		{"empty", "  ", "orgs/o1/documents/d1/a1/file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AttachmentKey("o1", "d1", "a1", tt.filename))
		})
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.URL(ctx, "k", 0)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Put(ctx, "k", strings.NewReader("hello"), 5, "text/plain"))
	data, ct, err := m.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "text/plain", ct)

	u, err := m.URL(ctx, "k", 0)
	require.NoError(t, err)
	assert.Equal(t, "memory://k", u)

	require.NoError(t, m.Delete(ctx, "k"))
	assert.Equal(t, 0, m.Len())
}
