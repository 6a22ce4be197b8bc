// Package services implements the secure file operations on top of the
// metadata repository, the cipher and the content store.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securefiles/internal/access"
	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/contentstore"
	"github.com/dmitrijs2005/securefiles/internal/cryptox"
	"github.com/dmitrijs2005/securefiles/internal/dbx"
	"github.com/dmitrijs2005/securefiles/internal/logging"
	"github.com/dmitrijs2005/securefiles/internal/server/metrics"
	"github.com/dmitrijs2005/securefiles/internal/server/models"
	"github.com/dmitrijs2005/securefiles/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	defaultStorageTimeout = 30 * time.Second
	defaultMaxUploadSize  = 10 << 20
)

// StoreRequest carries everything needed to create a file record.
type StoreRequest struct {
	OwnerID      string
	Category     models.Category
	Visibility   models.Visibility
	ResourceType models.ResourceType
	ResourceID   string
	Metadata     json.RawMessage
	Content      []byte
	Filename     string
	MimeType     string
}

// SecureFileService owns the lifecycle of encrypted files: it validates and
// encrypts uploads, stores the ciphertext by CID, records the crypto
// parameters, and on reads enforces the access policy before decrypting and
// verifying the plaintext checksum.
//
// Fields:
//   - db: transaction source for StoreReplacingCategory.
//   - repomanager: vends the record repository for db or a transaction.
//   - cipher / store: encryption engine and blob backend.
//   - storageTimeout: bound on every upload and download.
//   - maxUploadSize: largest accepted plaintext, in bytes.
type SecureFileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      *cryptox.Cipher
	store       contentstore.Store
	logger      logging.Logger
	metrics     *metrics.Metrics

	storageTimeout time.Duration
	maxUploadSize  int64
}

type Option func(*SecureFileService)

// WithMetrics reports storage and integrity outcomes to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SecureFileService) { s.metrics = m }
}

// WithStorageTimeout bounds every content store call.
func WithStorageTimeout(d time.Duration) Option {
	return func(s *SecureFileService) {
		if d > 0 {
			s.storageTimeout = d
		}
	}
}

func WithMaxUploadSize(n int64) Option {
	return func(s *SecureFileService) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// NewSecureFileService wires a service. Without WithMetrics, counters go to a
// private registry.
func NewSecureFileService(db *sql.DB, repomanager repomanager.RepositoryManager, cipher *cryptox.Cipher,
	store contentstore.Store, logger logging.Logger, opts ...Option) *SecureFileService {
	s := &SecureFileService{
		db:             db,
		repomanager:    repomanager,
		cipher:         cipher,
		store:          store,
		logger:         logger,
		storageTimeout: defaultStorageTimeout,
		maxUploadSize:  defaultMaxUploadSize,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		// a private registry never fails to register
		s.metrics, _ = metrics.New(nil)
	}
	return s
}

func (s *SecureFileService) validate(req *StoreRequest) error {
	if req.OwnerID == "" {
		return fmt.Errorf("%w: owner is required", common.ErrorValidation)
	}
	if !req.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", common.ErrorValidation, req.Category)
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityPrivate
	}
	if !req.Visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", common.ErrorValidation, req.Visibility)
	}
	if !req.ResourceType.Valid() {
		return fmt.Errorf("%w: unknown resource type %q", common.ErrorValidation, req.ResourceType)
	}
	if len(req.Content) == 0 {
		return fmt.Errorf("%w: empty file", common.ErrorValidation)
	}
	if int64(len(req.Content)) > s.maxUploadSize {
		return fmt.Errorf("%w: file exceeds %d bytes", common.ErrorValidation, s.maxUploadSize)
	}
	if len(req.Metadata) > 0 && !json.Valid(req.Metadata) {
		return fmt.Errorf("%w: metadata is not valid JSON", common.ErrorValidation)
	}
	return nil
}

func (s *SecureFileService) upload(ctx context.Context, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	id, err := s.store.Upload(ctx, data)
	err = storageError("upload", err)
	s.metrics.ObserveStorage("upload", err)
	return id, err
}

func (s *SecureFileService) download(ctx context.Context, id string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	data, err := s.store.Download(ctx, id)
	err = storageError("download", err)
	s.metrics.ObserveStorage("download", err)
	return data, err
}

// storageError makes sure a timed out or cancelled store call surfaces as
// common.ErrStorageUnavailable.
func storageError(op string, err error) error {
	if err == nil || errors.Is(err, common.ErrStorageUnavailable) || errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return contentstore.Unavailable(op, err)
}

// seal encrypts and uploads the content and returns an unsaved record.
func (s *SecureFileService) seal(ctx context.Context, req *StoreRequest) (*models.SecureFile, error) {
	sealed, err := s.cipher.Encrypt(req.Content)
	if err != nil {
		return nil, err
	}

	cid, err := s.upload(ctx, sealed.Ciphertext)
	if err != nil {
		return nil, err
	}

	p := sealed.HexParams()
	return &models.SecureFile{
		ID:                uuid.NewString(),
		OwnerID:           req.OwnerID,
		Category:          req.Category,
		Visibility:        req.Visibility,
		StorageProvider:   s.store.Provider(),
		CID:               cid,
		Filename:          req.Filename,
		MimeType:          req.MimeType,
		Size:              int64(len(req.Content)),
		Checksum:          cryptox.Checksum(req.Content),
		EncryptionSalt:    p.Salt,
		EncryptionIV:      p.IV,
		EncryptionAuthTag: p.AuthTag,
		ResourceType:      req.ResourceType,
		ResourceID:        req.ResourceID,
		Metadata:          req.Metadata,
	}, nil
}

// Store encrypts the content, uploads the ciphertext and persists a new
// record. Visibility defaults to PRIVATE.
func (s *SecureFileService) Store(ctx context.Context, req StoreRequest) (*models.SecureFile, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	f, err := s.seal(ctx, &req)
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.SecureFiles(s.db).Create(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "file stored", "file_id", f.ID, "owner", f.OwnerID, "category", f.Category, "size", f.Size)
	return f, nil
}

// StoreReplacingCategory stores a new file and demotes every earlier file of
// the same owner and category to PRIVATE. The ciphertext is uploaded first;
// demotion and insert then commit together, so a failed upload leaves the
// existing files untouched.
func (s *SecureFileService) StoreReplacingCategory(ctx context.Context, req StoreRequest) (*models.SecureFile, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	f, err := s.seal(ctx, &req)
	if err != nil {
		return nil, err
	}

	var demoted int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.SecureFiles(tx)

		n, err := repo.DemoteCategory(ctx, f.OwnerID, f.Category)
		if err != nil {
			return err
		}
		demoted = n
		return repo.Create(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "file stored replacing category", "file_id", f.ID, "owner", f.OwnerID,
		"category", f.Category, "demoted", demoted)
	return f, nil
}

// GetRecord returns metadata only; nothing is downloaded or decrypted.
func (s *SecureFileService) GetRecord(ctx context.Context, id string) (*models.SecureFile, error) {
	return s.repomanager.SecureFiles(s.db).GetByID(ctx, id)
}

// Fetch returns the record and the decrypted content if requesterID may read
// it. An empty requesterID is anonymous. Access is checked before any
// download or decryption.
func (s *SecureFileService) Fetch(ctx context.Context, id, requesterID string) (*models.SecureFile, []byte, error) {
	f, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if err := access.CheckFile(f, requesterID); err != nil {
		s.logger.Debug(ctx, "file access denied", "file_id", id, "requester", requesterID)
		return nil, nil, err
	}

	plaintext, err := s.open(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return f, plaintext, nil
}

// open downloads and decrypts the current blob of f and verifies the
// plaintext against the stored checksum.
func (s *SecureFileService) open(ctx context.Context, f *models.SecureFile) ([]byte, error) {
	ciphertext, err := s.download(ctx, f.CID)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.cipher.DecryptHex(ctx, ciphertext, cryptox.Params{
		Salt:    f.EncryptionSalt,
		IV:      f.EncryptionIV,
		AuthTag: f.EncryptionAuthTag,
	})
	if err != nil {
		s.logger.Error(ctx, "file decryption failed", "file_id", f.ID)
		return nil, err
	}

	if !cryptox.VerifyChecksum(plaintext, f.Checksum) {
		common.WipeByteArray(plaintext)
		s.metrics.IntegrityFailures.Inc()
		s.logger.Error(ctx, "file checksum mismatch", "file_id", f.ID)
		return nil, common.ErrIntegrity
	}
	return plaintext, nil
}

// SetVisibility changes the visibility tier of a record. It is an
// administrative operation; callers are expected to have authorized it.
func (s *SecureFileService) SetVisibility(ctx context.Context, id string, v models.Visibility) error {
	if !v.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", common.ErrorValidation, v)
	}
	if err := s.repomanager.SecureFiles(s.db).SetVisibility(ctx, id, v); err != nil {
		return err
	}
	s.logger.Info(ctx, "file visibility changed", "file_id", id, "visibility", v)
	return nil
}

// Reencrypt re-wraps the content of f under the primary key and replaces its
// crypto fields. The update only applies if the record still has the version
// f was read at; otherwise common.ErrVersionConflict is returned and the new
// blob is left unreferenced. On success f is updated in place.
func (s *SecureFileService) Reencrypt(ctx context.Context, f *models.SecureFile) error {
	plaintext, err := s.open(ctx, f)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(plaintext)

	sealed, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return err
	}

	cid, err := s.upload(ctx, sealed.Ciphertext)
	if err != nil {
		return err
	}

	p := sealed.HexParams()
	u := models.CryptoUpdate{
		CID:               cid,
		Checksum:          f.Checksum,
		EncryptionSalt:    p.Salt,
		EncryptionIV:      p.IV,
		EncryptionAuthTag: p.AuthTag,
	}

	version, err := s.repomanager.SecureFiles(s.db).UpdateCrypto(ctx, f.ID, f.Version, u)
	if err != nil {
		return err
	}

	f.CID = u.CID
	f.EncryptionSalt = u.EncryptionSalt
	f.EncryptionIV = u.EncryptionIV
	f.EncryptionAuthTag = u.EncryptionAuthTag
	f.Version = version
	return nil
}
