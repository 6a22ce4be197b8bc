// Package contentstore defines the content-addressed blob backend used to
// hold file ciphertext, plus CID helpers shared by the backends.
package contentstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Store uploads opaque bytes and returns the backend-assigned content id.
//
// Upload either stores the whole blob or fails with
// common.ErrStorageUnavailable. Download fails with common.ErrorNotFound when
// the backend reports a missing object and common.ErrStorageUnavailable on
// transport failure.
type Store interface {
	Upload(ctx context.Context, data []byte) (string, error)
	Download(ctx context.Context, contentID string) ([]byte, error)
	// Provider names the backend, recorded on every file.
	Provider() string
}

// ComputeCID returns the CIDv1 (raw codec, sha2-256) of data.
func ComputeCID(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

// ValidateCID checks that s parses as a CID. Backends call it on ids they
// receive from callers or remote services before using them in a key or URL.
func ValidateCID(s string) error {
	if _, err := cid.Decode(s); err != nil {
		return fmt.Errorf("%w: malformed content id", common.ErrorNotFound)
	}
	return nil
}

// Unavailable wraps a backend failure as common.ErrStorageUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, common.ErrStorageUnavailable, err)
}
