// Package memory is an in-process securefiles.Repository and
// RepositoryManager. It is a test fixture for the service, HTTP and
// application tests, which run without PostgreSQL.
package memory

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/dbx"
	"github.com/dmitrijs2005/securefiles/internal/server/models"
	"github.com/dmitrijs2005/securefiles/internal/server/repositories/securefiles"
)

type Repository struct {
	mu    sync.Mutex
	files map[string]*models.SecureFile
	now   func() time.Time
	tick  time.Duration
}

// New returns an empty repository. Each Create gets a strictly increasing
// CreatedAt so keyset order matches insertion order.
func New() *Repository {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &Repository{files: make(map[string]*models.SecureFile)}
	r.now = func() time.Time {
		r.tick += time.Millisecond
		return base.Add(r.tick)
	}
	return r
}

func clone(f *models.SecureFile) *models.SecureFile {
	c := *f
	c.Metadata = slices.Clone(f.Metadata)
	return &c
}

func (r *Repository) Create(ctx context.Context, f *models.SecureFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[f.ID]; ok {
		return common.ErrorValidation
	}
	now := r.now()
	f.Version = 1
	f.CreatedAt = now
	f.UpdatedAt = now
	r.files[f.ID] = clone(f)
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.SecureFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(f), nil
}

func (r *Repository) DemoteCategory(ctx context.Context, ownerID string, category models.Category) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, f := range r.files {
		if f.OwnerID == ownerID && f.Category == category && f.Visibility != models.VisibilityPrivate {
			f.Visibility = models.VisibilityPrivate
			f.UpdatedAt = r.now()
			n++
		}
	}
	return n, nil
}

func (r *Repository) SetVisibility(ctx context.Context, id string, v models.Visibility) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	f.Visibility = v
	f.UpdatedAt = r.now()
	return nil
}

func matches(f *models.SecureFile, filter models.Filter) bool {
	if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, f.ID) {
		return false
	}
	if filter.OwnerID != "" && f.OwnerID != filter.OwnerID {
		return false
	}
	if filter.Category != "" && f.Category != filter.Category {
		return false
	}
	return true
}

func (r *Repository) Count(ctx context.Context, filter models.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, f := range r.files {
		if matches(f, filter) {
			n++
		}
	}
	return n, nil
}

func after(f *models.SecureFile, c models.Cursor) bool {
	if c.IsZero() {
		return true
	}
	if f.CreatedAt.Equal(c.CreatedAt) {
		return f.ID > c.ID
	}
	return f.CreatedAt.After(c.CreatedAt)
}

func (r *Repository) ListAfter(ctx context.Context, filter models.Filter, cursor models.Cursor, limit int) ([]*models.SecureFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.SecureFile
	for _, f := range r.files {
		if matches(f, filter) && after(f, cursor) {
			out = append(out, clone(f))
		}
	}
	slices.SortFunc(out, func(a, b *models.SecureFile) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) UpdateCrypto(ctx context.Context, id string, expectedVersion int64, u models.CryptoUpdate) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[id]
	if !ok || f.Version != expectedVersion {
		return 0, common.ErrVersionConflict
	}
	f.CID = u.CID
	f.Checksum = u.Checksum
	f.EncryptionSalt = u.EncryptionSalt
	f.EncryptionIV = u.EncryptionIV
	f.EncryptionAuthTag = u.EncryptionAuthTag
	f.Version++
	f.UpdatedAt = r.now()
	return f.Version, nil
}

// Manager hands out the same Repository regardless of the DBTX, so
// transactional callers still work; rollback is not simulated.
type Manager struct {
	Repo *Repository
}

func NewManager() *Manager {
	return &Manager{Repo: New()}
}

func (m *Manager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *Manager) SecureFiles(dbx.DBTX) securefiles.Repository { return m.Repo }
