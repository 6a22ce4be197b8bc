package contentstore

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCID_DeterministicAndContentBound(t *testing.T) {
	a1, err := ComputeCID([]byte("ciphertext-a"))
	require.NoError(t, err)
	a2, err := ComputeCID([]byte("ciphertext-a"))
	require.NoError(t, err)
	b, err := ComputeCID([]byte("ciphertext-b"))
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)

	parsed, err := cid.Decode(a1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), parsed.Version())
	assert.Equal(t, uint64(cid.Raw), parsed.Type())
}

func TestValidateCID(t *testing.T) {
	c, err := ComputeCID([]byte("x"))
	require.NoError(t, err)
	assert.NoError(t, ValidateCID(c))

	err = ValidateCID("../../etc/passwd")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestUnavailable(t *testing.T) {
	err := Unavailable("upload", errors.New("connection reset"))
	assert.True(t, errors.Is(err, common.ErrStorageUnavailable))
	assert.Contains(t, err.Error(), "upload")
}
