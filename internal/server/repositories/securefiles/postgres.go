package securefiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/dbx"
	"github.com/dmitrijs2005/securefiles/internal/server/models"
	"github.com/google/uuid"
)

const selectColumns = `id, owner_id, category, visibility, storage_provider, cid, filename, mime_type, size,
	checksum, encryption_salt, encryption_iv, encryption_auth_tag, resource_type, resource_id, metadata,
	version, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*models.SecureFile, error) {
	var (
		f            models.SecureFile
		resourceType sql.NullString
		resourceID   sql.NullString
		metadata     []byte
	)
	err := row.Scan(&f.ID, &f.OwnerID, &f.Category, &f.Visibility, &f.StorageProvider, &f.CID,
		&f.Filename, &f.MimeType, &f.Size, &f.Checksum, &f.EncryptionSalt, &f.EncryptionIV,
		&f.EncryptionAuthTag, &resourceType, &resourceID, &metadata, &f.Version, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.ResourceType = models.ResourceType(resourceType.String)
	f.ResourceID = resourceID.String
	if len(metadata) > 0 {
		f.Metadata = metadata
	}
	return &f, nil
}

// Create inserts a new record. Version, CreatedAt and UpdatedAt are filled
// from the database.
func (r *PostgresRepository) Create(ctx context.Context, f *models.SecureFile) error {
	query := `
		INSERT INTO secure_files (id, owner_id, category, visibility, storage_provider, cid, filename,
			mime_type, size, checksum, encryption_salt, encryption_iv, encryption_auth_tag,
			resource_type, resource_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING version, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		f.ID, f.OwnerID, f.Category, f.Visibility, f.StorageProvider, f.CID, f.Filename,
		f.MimeType, f.Size, f.Checksum, f.EncryptionSalt, f.EncryptionIV, f.EncryptionAuthTag,
		nullString(string(f.ResourceType)), nullString(f.ResourceID), nullJSON(f.Metadata),
	).Scan(&f.Version, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// validID reports whether id can name a row; ids are UUIDs.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// GetByID returns the record or common.ErrorNotFound. Ids that are not
// UUIDs are reported as not found without querying.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.SecureFile, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	query := `SELECT ` + selectColumns + ` FROM secure_files WHERE id=$1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) DemoteCategory(ctx context.Context, ownerID string, category models.Category) (int64, error) {
	query := `UPDATE secure_files SET visibility=$1, updated_at=now()
		WHERE owner_id=$2 AND category=$3 AND visibility<>$1`

	res, err := r.db.ExecContext(ctx, query, models.VisibilityPrivate, ownerID, category)
	if err != nil {
		return 0, fmt.Errorf("failed to demote files: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) SetVisibility(ctx context.Context, id string, v models.Visibility) error {
	if !validID(id) {
		return common.ErrorNotFound
	}
	query := `UPDATE secure_files SET visibility=$1, updated_at=now() WHERE id=$2`

	res, err := r.db.ExecContext(ctx, query, v, id)
	if err != nil {
		return fmt.Errorf("failed to set visibility: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// whereClause renders filter as SQL conditions starting at placeholder
// $start. It always returns at least one condition. Ids that are not UUIDs
// are skipped; a filter whose ids are all invalid matches nothing.
func whereClause(filter models.Filter, start int) (string, []any) {
	conds := []string{"TRUE"}
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", start+len(args)-1)
	}

	if len(filter.IDs) > 0 {
		ph := make([]string, 0, len(filter.IDs))
		for _, id := range filter.IDs {
			if validID(id) {
				ph = append(ph, next(id))
			}
		}
		if len(ph) == 0 {
			conds = append(conds, "FALSE")
		} else {
			conds = append(conds, "id IN ("+strings.Join(ph, ", ")+")")
		}
	}
	if filter.OwnerID != "" {
		conds = append(conds, "owner_id="+next(filter.OwnerID))
	}
	if filter.Category != "" {
		conds = append(conds, "category="+next(filter.Category))
	}
	return strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) Count(ctx context.Context, filter models.Filter) (int64, error) {
	where, args := whereClause(filter, 1)
	query := `SELECT count(*) FROM secure_files WHERE ` + where

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListAfter(ctx context.Context, filter models.Filter, cursor models.Cursor, limit int) ([]*models.SecureFile, error) {
	where, args := whereClause(filter, 1)
	if !cursor.IsZero() {
		n := len(args)
		where += fmt.Sprintf(" AND (created_at, id) > ($%d, $%d)", n+1, n+2)
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	args = append(args, limit)
	query := `SELECT ` + selectColumns + ` FROM secure_files WHERE ` + where +
		fmt.Sprintf(` ORDER BY created_at ASC, id ASC LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.SecureFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateCrypto swaps cid, checksum, salt, iv and tag in one statement, so a
// concurrent reader sees either the old or the new group.
func (r *PostgresRepository) UpdateCrypto(ctx context.Context, id string, expectedVersion int64, u models.CryptoUpdate) (int64, error) {
	query := `
		UPDATE secure_files
		SET cid=$1, checksum=$2, encryption_salt=$3, encryption_iv=$4, encryption_auth_tag=$5,
			version=version+1, updated_at=now()
		WHERE id=$6 AND version=$7
		RETURNING version`

	var version int64
	err := r.db.QueryRowContext(ctx, query,
		u.CID, u.Checksum, u.EncryptionSalt, u.EncryptionIV, u.EncryptionAuthTag, id, expectedVersion,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrVersionConflict
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return version, nil
}
