package access

import (
	"testing"

	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		visibility models.Visibility
		requester  string
		want       error
	}{
		{"public anonymous", models.VisibilityPublic, Anonymous, nil},
		{"public stranger", models.VisibilityPublic, "u2", nil},
		{"authenticated stranger", models.VisibilityAuthenticated, "u2", nil},
		{"authenticated owner", models.VisibilityAuthenticated, "u1", nil},
		{"authenticated anonymous", models.VisibilityAuthenticated, Anonymous, common.ErrAuthenticationRequired},
		{"private owner", models.VisibilityPrivate, "u1", nil},
		{"private stranger", models.VisibilityPrivate, "u2", common.ErrForbidden},
		{"private anonymous", models.VisibilityPrivate, Anonymous, common.ErrForbidden},
		{"unknown tier owner", models.Visibility("SECRET"), "u1", nil},
		{"unknown tier stranger", models.Visibility("SECRET"), "u2", common.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.visibility, "u1", tt.requester))
		})
	}
}

func TestCheckFile_EmptyOwnerNeverMatchesAnonymous(t *testing.T) {
	f := &models.SecureFile{OwnerID: "", Visibility: models.VisibilityPrivate}
	assert.Equal(t, common.ErrForbidden, CheckFile(f, Anonymous))
}
