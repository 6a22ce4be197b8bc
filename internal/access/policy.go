// Package access decides whether a requester may read a file, based only on
// the file's visibility tier and owner.
package access

import (
	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/server/models"
)

// Anonymous is the requester id of an unauthenticated caller.
const Anonymous = ""

// Check returns nil when requesterID may read a file with the given
// visibility and owner, common.ErrAuthenticationRequired when an
// authenticated identity is needed, and common.ErrForbidden otherwise.
// Unknown visibility values are treated as private.
func Check(visibility models.Visibility, ownerID, requesterID string) error {
	switch visibility {
	case models.VisibilityPublic:
		return nil
	case models.VisibilityAuthenticated:
		if requesterID == Anonymous {
			return common.ErrAuthenticationRequired
		}
		return nil
	default:
		if requesterID == Anonymous || requesterID != ownerID {
			return common.ErrForbidden
		}
		return nil
	}
}

// CheckFile is Check applied to a record.
func CheckFile(f *models.SecureFile, requesterID string) error {
	return Check(f.Visibility, f.OwnerID, requesterID)
}
