package blobsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogKindOf(t *testing.T) {
	c := newCatalog([]BlobID{ImageBlobID, TarballBlobID}, HashBlobID)
	assert.Equal(t, KindUploadTarget, c.kindOf(ImageBlobID))
	assert.Equal(t, KindUploadTarget, c.kindOf(TarballBlobID))
	assert.Equal(t, KindHashTarget, c.kindOf(HashBlobID))
	assert.Equal(t, KindVerify, c.kindOf(VerifyBlobID))
	assert.Equal(t, KindActiveImage, c.kindOf(ActiveImageID))
	assert.Equal(t, KindActiveHash, c.kindOf(ActiveHashID))
	assert.Equal(t, KindUnknown, c.kindOf("/flash/nope"))
}

// Testable property #3: getBlobIds is a pure function of state + configured set.
func TestCatalogSnapshotIsPureFunctionOfState(t *testing.T) {
	c := newCatalog([]BlobID{ImageBlobID}, HashBlobID)

	assert.ElementsMatch(t, []BlobID{ImageBlobID, HashBlobID}, c.snapshot(StateNotYetStarted, false, false))
	assert.ElementsMatch(t, []BlobID{ImageBlobID, HashBlobID}, c.snapshot(StateUploadInProgress, false, false))
	assert.ElementsMatch(t,
		[]BlobID{ImageBlobID, HashBlobID, VerifyBlobID, ActiveImageID},
		c.snapshot(StateVerificationPending, true, false))
	assert.ElementsMatch(t,
		[]BlobID{ImageBlobID, HashBlobID, VerifyBlobID, ActiveImageID, ActiveHashID},
		c.snapshot(StateVerificationStarted, true, true))
	assert.ElementsMatch(t, []BlobID{ImageBlobID, HashBlobID}, c.snapshot(StateUpdateCompleted, false, false))
}

func TestCatalogWithNoHashTargetConfigured(t *testing.T) {
	c := newCatalog([]BlobID{ImageBlobID}, "")
	assert.ElementsMatch(t, []BlobID{ImageBlobID}, c.snapshot(StateNotYetStarted, false, false))
	assert.Equal(t, KindUnknown, c.kindOf(HashBlobID))
}
