// Package models defines server-side data models persisted in the database.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/securefiles/internal/common"
)

// Visibility governs who may read a file's plaintext.
type Visibility string

const (
	VisibilityPublic        Visibility = "PUBLIC"
	VisibilityAuthenticated Visibility = "AUTHENTICATED"
	VisibilityPrivate       Visibility = "PRIVATE"
)

// Valid reports whether v is one of the known tiers.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityAuthenticated, VisibilityPrivate:
		return true
	}
	return false
}

// Category describes the purpose of a file.
type Category string

const (
	CategoryAvatar        Category = "AVATAR"
	CategoryResume        Category = "RESUME"
	CategoryCertification Category = "CERTIFICATION"
	CategoryDocument      Category = "DOCUMENT"
)

var categories = []Category{CategoryAvatar, CategoryResume, CategoryCertification, CategoryDocument}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range categories {
		if c == k {
			return true
		}
	}
	return false
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", common.ErrorValidation, s)
	}
	return c, nil
}

// ResourceType names the kind of business entity a file is attached to.
type ResourceType string

const (
	ResourceUser              ResourceType = "USER"
	ResourceFreelancerProfile ResourceType = "FREELANCER_PROFILE"
	ResourceClientProfile     ResourceType = "CLIENT_PROFILE"
)

// Valid reports whether r is empty or a known resource type.
func (r ResourceType) Valid() bool {
	switch r {
	case "", ResourceUser, ResourceFreelancerProfile, ResourceClientProfile:
		return true
	}
	return false
}

// SecureFile is the metadata of one encrypted blob. The ciphertext itself
// lives in the content store under CID.
type SecureFile struct {
	ID              string
	OwnerID         string
	Category        Category
	Visibility      Visibility
	StorageProvider string

	// CID addresses the current ciphertext; it changes on re-encryption.
	CID      string
	Filename string
	MimeType string
	// Size is the plaintext size in bytes.
	Size int64
	// Checksum is the hex SHA-256 of the plaintext.
	Checksum string

	EncryptionSalt    string
	EncryptionIV      string
	EncryptionAuthTag string

	ResourceType ResourceType
	ResourceID   string
	Metadata     json.RawMessage

	// Version increases on every crypto-group update.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CryptoUpdate is the group of fields replaced together by re-encryption.
type CryptoUpdate struct {
	CID               string
	Checksum          string
	EncryptionSalt    string
	EncryptionIV      string
	EncryptionAuthTag string
}

// Filter selects records for the re-encryption job. Empty fields match all.
type Filter struct {
	IDs      []string
	OwnerID  string
	Category Category
}

// Cursor is a keyset position in (created_at, id) order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// IsZero reports whether the cursor is unset.
func (c Cursor) IsZero() bool {
	return c.ID == ""
}
