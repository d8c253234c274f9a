package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name   string
		doc    Document
		fields []string
	}{
		{"ok", Document{Title: " PRD ", Kind: KindPRD, Status: StatusDraft}, nil},
		{"missing title", Document{Kind: KindNote, Status: StatusDraft}, []string{"title"}},
		{"bad kind and status", Document{Title: "x", Kind: "MEMO", Status: "LIVE"}, []string{"kind", "status"}},
		{"long title", Document{Title: strings.Repeat("é", 201), Kind: KindSpec, Status: StatusDraft}, []string{"title"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			var ve *apperr.ValidationError
			require.True(t, errors.As(err, &ve))
			for _, f := range tt.fields {
				assert.NotEmpty(t, ve.Field(f), f)
			}
		})
	}
}

func TestAttachment_Validate(t *testing.T) {
	a := Attachment{Filename: "a.txt", SizeBytes: 11}
	assert.NoError(t, a.Validate(100))
	assert.Error(t, a.Validate(10))

	empty := Attachment{Filename: "a.txt"}
	assert.Error(t, empty.Validate(100))
}
