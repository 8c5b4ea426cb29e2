package entities

import (
	"testing"

	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeRequest(t *testing.T) {
	req, err := NewMergeRequest("fork", "main", "5")
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.True(t, req.IsPending())
	assert.Nil(t, req.ResolvedAt)

	require.NoError(t, req.Accept())
	assert.Equal(t, MergeRequestAccepted, req.Status)
	assert.NotNil(t, req.ResolvedAt)
	assert.True(t, pkgerrors.IsConflict(req.Accept()))

	_, err = NewMergeRequest("main", "main", "5")
	assert.True(t, pkgerrors.IsValidation(err))
}
