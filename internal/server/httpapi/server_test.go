package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/securefiles/internal/common"
	cmem "github.com/dmitrijs2005/securefiles/internal/contentstore/memory"
	"github.com/dmitrijs2005/securefiles/internal/cryptox"
	"github.com/dmitrijs2005/securefiles/internal/logging"
	"github.com/dmitrijs2005/securefiles/internal/server/auth"
	"github.com/dmitrijs2005/securefiles/internal/server/metrics"
	rmem "github.com/dmitrijs2005/securefiles/internal/server/repositories/securefiles/memory"
	"github.com/dmitrijs2005/securefiles/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const jwtSecret = "http-test-secret"

type testAPI struct {
	srv  *httptest.Server
	mock sqlmock.Sqlmock
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	ring, err := cryptox.NewKeyRing("primary-secret-that-is-long-enough-0001", nil)
	require.NoError(t, err)
	c, err := cryptox.NewCipher(ring, cryptox.WithIterations(1000))
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := metrics.New(nil)
	require.NoError(t, err)

	logger := logging.NewZapLogger(zaptest.NewLogger(t))
	svc := services.NewSecureFileService(db, rmem.NewManager(), c, cmem.New(), logger,
		services.WithMetrics(m), services.WithMaxUploadSize(1024))

	s := NewHTTPServer("127.0.0.1:0", logger, svc, jwtSecret, 1024, m.Handler())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return &testAPI{srv: ts, mock: mock}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(jwtSecret), time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, user string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, body)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token(t, user))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func uploadForm(t *testing.T, fields map[string]string, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if content != nil {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (a *testAPI) upload(t *testing.T, user string, fields map[string]string, content string) fileResponse {
	t.Helper()
	body, ct := uploadForm(t, fields, "doc.txt", []byte(content))
	resp := a.do(t, http.MethodPost, "/files", user, body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out fileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	resp := a.do(t, http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStoreAndFetch(t *testing.T) {
	a := newTestAPI(t)

	rec := a.upload(t, "u1", map[string]string{
		"category":   "resume",
		"visibility": "AUTHENTICATED",
		"metadata":   `{"issuer":"acme"}`,
	}, "curriculum vitae")

	assert.Equal(t, "u1", rec.OwnerID)
	assert.Equal(t, "RESUME", rec.Category)
	assert.Equal(t, int64(len("curriculum vitae")), rec.Size)
	assert.JSONEq(t, `{"issuer":"acme"}`, string(rec.Metadata))

	resp := a.do(t, http.MethodGet, "/files/"+rec.ID, "u2", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "curriculum vitae", string(body))
	assert.Equal(t, rec.Checksum, resp.Header.Get("X-Content-SHA256"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "doc.txt")
	assert.Equal(t, "private, no-store", resp.Header.Get("Cache-Control"))

	anon := a.do(t, http.MethodGet, "/files/"+rec.ID, "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, anon.StatusCode)
}

func TestStore_Errors(t *testing.T) {
	a := newTestAPI(t)

	t.Run("anonymous", func(t *testing.T) {
		body, ct := uploadForm(t, map[string]string{"category": "AVATAR"}, "a.png", []byte("x"))
		resp := a.do(t, http.MethodPost, "/files", "", body, ct)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown category", func(t *testing.T) {
		body, ct := uploadForm(t, map[string]string{"category": "SELFIE"}, "a.png", []byte("x"))
		resp := a.do(t, http.MethodPost, "/files", "u1", body, ct)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing file", func(t *testing.T) {
		body, ct := uploadForm(t, map[string]string{"category": "AVATAR"}, "", nil)
		resp := a.do(t, http.MethodPost, "/files", "u1", body, ct)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("too large", func(t *testing.T) {
		body, ct := uploadForm(t, map[string]string{"category": "AVATAR"}, "a.png", bytes.Repeat([]byte("x"), 2048))
		resp := a.do(t, http.MethodPost, "/files", "u1", body, ct)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad token", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, a.srv.URL+"/files/x", nil)
		require.NoError(t, err)
		req.Header.Set(common.AuthorizationHeaderName, "Bearer garbage")
		resp, err := a.srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
	})
}

func TestFetch_PrivateAndMissing(t *testing.T) {
	a := newTestAPI(t)
	rec := a.upload(t, "u1", map[string]string{"category": "DOCUMENT"}, "private by default")
	assert.Equal(t, "PRIVATE", rec.Visibility)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/files/"+rec.ID, "u1", nil, "").StatusCode)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/files/"+rec.ID, "u2", nil, "").StatusCode)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/files/"+rec.ID, "", nil, "").StatusCode)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/files/nope", "u1", nil, "").StatusCode)

	meta := a.do(t, http.MethodGet, "/files/"+rec.ID+"/meta", "u2", nil, "")
	assert.Equal(t, http.StatusForbidden, meta.StatusCode)
}

func TestReplaceCategory(t *testing.T) {
	a := newTestAPI(t)
	r1 := a.upload(t, "u1", map[string]string{"category": "AVATAR", "visibility": "PUBLIC"}, "old face")

	a.mock.ExpectBegin()
	a.mock.ExpectCommit()
	r2 := a.upload(t, "u1", map[string]string{"category": "AVATAR", "visibility": "PUBLIC", "replace": "true"}, "new face")
	require.NoError(t, a.mock.ExpectationsWereMet())
	assert.Equal(t, "PUBLIC", r2.Visibility)

	resp := a.do(t, http.MethodGet, "/files/"+r1.ID+"/meta", "u1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var meta fileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
	assert.Equal(t, "PRIVATE", meta.Visibility)

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/files/"+r1.ID, "", nil, "").StatusCode)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/files/"+r2.ID, "", nil, "").StatusCode)
}

func TestSetVisibility(t *testing.T) {
	a := newTestAPI(t)
	rec := a.upload(t, "u1", map[string]string{"category": "CERTIFICATION"}, "cert")

	patch := func(user, v string) int {
		body := strings.NewReader(fmt.Sprintf(`{"visibility":%q}`, v))
		return a.do(t, http.MethodPatch, "/files/"+rec.ID+"/visibility", user, body, "application/json").StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, patch("", "PUBLIC"))
	assert.Equal(t, http.StatusForbidden, patch("u2", "PUBLIC"))
	assert.Equal(t, http.StatusBadRequest, patch("u1", "EVERYONE"))
	assert.Equal(t, http.StatusNoContent, patch("u1", "PUBLIC"))

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/files/"+rec.ID, "", nil, "").StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestAPI(t)
	a.upload(t, "u1", map[string]string{"category": "DOCUMENT"}, "x")

	resp := a.do(t, http.MethodGet, "/metrics", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `securefiles_storage_operations_total{op="upload",result="ok"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{common.ErrorNotFound, http.StatusNotFound},
		{common.ErrAuthenticationRequired, http.StatusUnauthorized},
		{common.ErrInvalidToken, http.StatusUnauthorized},
		{common.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: bad", common.ErrorValidation), http.StatusBadRequest},
		{common.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{common.ErrDecryption, http.StatusInternalServerError},
		{common.ErrIntegrity, http.StatusInternalServerError},
		{common.ErrVersionConflict, http.StatusConflict},
		{errors.New("db exploded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, msg := statusFor(tt.err)
		assert.Equal(t, tt.want, code, tt.err.Error())
		if code == http.StatusInternalServerError {
			assert.Equal(t, "internal error", msg, "no internal detail leaks")
		}
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	logger := logging.NewZapLogger(zaptest.NewLogger(t))
	s := NewHTTPServer("127.0.0.1:0", logger, nil, jwtSecret, 1024, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
