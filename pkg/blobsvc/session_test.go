package blobsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTableUniqueness(t *testing.T) {
	tbl := NewSessionTable()
	assert.False(t, tbl.Exists(1))
	tbl.Open(1, ImageBlobID, FlagWrite|FlagBT, RoleUpload)
	assert.True(t, tbl.Exists(1))
	assert.True(t, tbl.BlobOpen(ImageBlobID))
	assert.False(t, tbl.BlobOpen(HashBlobID))
}

func TestSessionTableRemoveIsIdempotent(t *testing.T) {
	tbl := NewSessionTable()
	tbl.Open(1, ImageBlobID, FlagWrite|FlagBT, RoleUpload)
	tbl.Remove(1)
	assert.False(t, tbl.Exists(1))
	assert.False(t, tbl.BlobOpen(ImageBlobID))
	// second removal is a no-op, not a panic.
	tbl.Remove(1)
}

func TestSessionTableGet(t *testing.T) {
	tbl := NewSessionTable()
	tbl.Open(7, VerifyBlobID, FlagRead|FlagBT, RoleVerify)
	s, ok := tbl.Get(7)
	require.True(t, ok)
	assert.Equal(t, VerifyBlobID, s.Blob)
	assert.Equal(t, RoleVerify, s.Role)
	assert.Equal(t, 1, tbl.Len())
}
