package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

func TestProduct_Validate(t *testing.T) {
	p := &Product{Name: "  Checkout ", Key: " chk "}
	p.Normalize()
	require.NoError(t, p.Validate())
	assert.Equal(t, "Checkout", p.Name)
	assert.Equal(t, "CHK", p.Key)
	assert.Equal(t, StageIdeation, p.Stage)

	bad := &Product{Key: "C1", Stage: "LAUNCHED"}
	err := bad.Validate()
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("name"))
	assert.NotEmpty(t, ve.Field("key"))
	assert.NotEmpty(t, ve.Field("stage"))
}

func TestProduct_KeyLength(t *testing.T) {
	for key, ok := range map[string]bool{"A": false, "AB": true, "ABCDEFGHIJ": true, "ABCDEFGHIJK": false} {
		p := &Product{Name: "x", Key: key, Stage: StageGrowth}
		assert.Equal(t, ok, p.Validate() == nil, key)
	}
}
