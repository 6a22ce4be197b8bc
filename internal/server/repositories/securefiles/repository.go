// Package securefiles persists SecureFile records (metadata only, never the
// ciphertext or plaintext).
package securefiles

import (
	"context"

	"github.com/dmitrijs2005/securefiles/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, f *models.SecureFile) error
	GetByID(ctx context.Context, id string) (*models.SecureFile, error)
	// DemoteCategory sets every record of owner+category to PRIVATE and
	// returns the number of rows touched.
	DemoteCategory(ctx context.Context, ownerID string, category models.Category) (int64, error)
	SetVisibility(ctx context.Context, id string, v models.Visibility) error
	Count(ctx context.Context, filter models.Filter) (int64, error)
	// ListAfter returns up to limit records strictly after cursor in
	// (created_at, id) order.
	ListAfter(ctx context.Context, filter models.Filter, cursor models.Cursor, limit int) ([]*models.SecureFile, error)
	// UpdateCrypto replaces the crypto group when the stored version equals
	// expectedVersion, returning the new version, or common.ErrVersionConflict.
	UpdateCrypto(ctx context.Context, id string, expectedVersion int64, u models.CryptoUpdate) (int64, error)
}
