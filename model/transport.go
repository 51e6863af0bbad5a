package model

import "context"

// Blob is an opaque downloaded model artifact. The manager stores it as-is;
// its internal format belongs to the inference backend.
type Blob struct {
	Identifier Identifier
	Data       []byte
	// Version distinguishes artifact revisions for the same language.
	Version string
}

// Size returns the artifact size in bytes.
func (b Blob) Size() int { return len(b.Data) }

// Transport is the boundary to the network and storage layer that serves
// model artifacts. Implementations must be safe for concurrent use.
type Transport interface {
	// Fetch downloads the artifact for id under the given conditions.
	// Enforcing the conditions is the transport's responsibility: an
	// implementation running where cellular or background constraints
	// apply must refuse or defer the transfer itself, since the manager
	// only plumbs the caller's conditions through. Errors should be
	// wrapped transient when a retry could succeed.
	Fetch(ctx context.Context, id Identifier, conditions DownloadConditions) (Blob, error)
	// Delete removes any stored artifact for id. Deleting an absent
	// artifact is not an error.
	Delete(ctx context.Context, id Identifier) error
}
