package blobsvc

// catalog computes the dynamic set of visible firmware blob ids as a pure
// function of the configured targets and the handler's current state
// (§4.2). It holds no mutable bookkeeping of its own; the FSM tracks
// activeImagePresent/activeHashPresent and passes them in, keeping
// getBlobIds a pure read per testable property #3.
type catalog struct {
	uploadTargets []BlobID
	hashTarget    BlobID
}

func newCatalog(uploadTargets []BlobID, hashTarget BlobID) *catalog {
	cp := make([]BlobID, len(uploadTargets))
	copy(cp, uploadTargets)
	return &catalog{uploadTargets: cp, hashTarget: hashTarget}
}

// kindOf classifies path against the configured blob set. Paths outside
// the configured set are KindUnknown, even if they happen to equal one of
// the well-known constants (e.g. a deployment that never configures
// "/flash/tarball").
func (c *catalog) kindOf(path BlobID) BlobKind {
	for _, t := range c.uploadTargets {
		if t == path {
			return KindUploadTarget
		}
	}
	if path == c.hashTarget && c.hashTarget != "" {
		return KindHashTarget
	}
	if path == VerifyBlobID {
		return KindVerify
	}
	if path == ActiveImageID {
		return KindActiveImage
	}
	if path == ActiveHashID {
		return KindActiveHash
	}
	return KindUnknown
}

// snapshot returns the visible blob id set for the given state and active
// markers (I3, I4). Order is unspecified per §4.1; callers that need a
// stable order sort it themselves.
func (c *catalog) snapshot(state UpdateState, activeImage, activeHash bool) []BlobID {
	ids := make([]BlobID, 0, len(c.uploadTargets)+4)
	ids = append(ids, c.uploadTargets...)
	if c.hashTarget != "" {
		ids = append(ids, c.hashTarget)
	}
	if state == StateVerificationPending || state == StateVerificationStarted || state == StateVerificationCompleted {
		ids = append(ids, VerifyBlobID)
	}
	if activeImage {
		ids = append(ids, ActiveImageID)
	}
	if activeHash {
		ids = append(ids, ActiveHashID)
	}
	return ids
}

func (c *catalog) contains(state UpdateState, activeImage, activeHash bool, path BlobID) bool {
	for _, id := range c.snapshot(state, activeImage, activeHash) {
		if id == path {
			return true
		}
	}
	return false
}
