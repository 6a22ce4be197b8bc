package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/securefiles/internal/access"
	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/server/models"
	"github.com/dmitrijs2005/securefiles/internal/server/services"
)

// multipart overhead allowed on top of the file itself
const formOverhead = 1 << 20

// fileResponse is the public view of a record; crypto parameters stay
// server-side.
type fileResponse struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	Category     string          `json:"category"`
	Visibility   string          `json:"visibility"`
	Filename     string          `json:"filename"`
	MimeType     string          `json:"mime_type"`
	Size         int64           `json:"size"`
	Checksum     string          `json:"checksum"`
	ResourceType string          `json:"resource_type,omitempty"`
	ResourceID   string          `json:"resource_id,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toResponse(f *models.SecureFile) fileResponse {
	return fileResponse{
		ID:           f.ID,
		OwnerID:      f.OwnerID,
		Category:     string(f.Category),
		Visibility:   string(f.Visibility),
		Filename:     f.Filename,
		MimeType:     f.MimeType,
		Size:         f.Size,
		Checksum:     f.Checksum,
		ResourceType: string(f.ResourceType),
		ResourceID:   f.ResourceID,
		Metadata:     f.Metadata,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// handleStore accepts a multipart form with a "file" part and the fields
// category, visibility, resource_type, resource_id, metadata and replace.
// The caller becomes the owner.
func (s *HTTPServer) handleStore(w http.ResponseWriter, r *http.Request) {
	owner := requesterID(r.Context())
	if owner == access.Anonymous {
		s.writeError(w, r, common.ErrAuthenticationRequired)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+formOverhead)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: malformed upload", common.ErrorValidation))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: missing file part", common.ErrorValidation))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: unreadable file part", common.ErrorValidation))
		return
	}

	category, err := models.ParseCategory(r.FormValue("category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	req := services.StoreRequest{
		OwnerID:      owner,
		Category:     category,
		Visibility:   models.Visibility(r.FormValue("visibility")),
		ResourceType: models.ResourceType(r.FormValue("resource_type")),
		ResourceID:   r.FormValue("resource_id"),
		Content:      content,
		Filename:     header.Filename,
		MimeType:     mimeType,
	}
	if m := r.FormValue("metadata"); m != "" {
		req.Metadata = json.RawMessage(m)
	}

	replace, _ := strconv.ParseBool(r.FormValue("replace"))

	var f *models.SecureFile
	if replace {
		f, err = s.files.StoreReplacingCategory(r.Context(), req)
	} else {
		f, err = s.files.Store(r.Context(), req)
	}
	common.WipeByteArray(content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(f))
}

func (s *HTTPServer) handleFetch(w http.ResponseWriter, r *http.Request) {
	f, plaintext, err := s.files.Fetch(r.Context(), r.PathValue("id"), requesterID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer common.WipeByteArray(plaintext)

	w.Header().Set("Content-Type", f.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(plaintext)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Filename}))
	w.Header().Set("X-Content-SHA256", f.Checksum)
	if f.Visibility != models.VisibilityPublic {
		w.Header().Set("Cache-Control", "private, no-store")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(plaintext)
}

// handleMeta returns record metadata under the same policy as the content.
func (s *HTTPServer) handleMeta(w http.ResponseWriter, r *http.Request) {
	f, err := s.files.GetRecord(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := access.CheckFile(f, requesterID(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(f))
}

type visibilityRequest struct {
	Visibility string `json:"visibility"`
}

// handleSetVisibility lets the owner change the tier of one of their files.
func (s *HTTPServer) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	requester := requesterID(r.Context())
	if requester == access.Anonymous {
		s.writeError(w, r, common.ErrAuthenticationRequired)
		return
	}

	var body visibilityRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: malformed body", common.ErrorValidation))
		return
	}

	id := r.PathValue("id")
	f, err := s.files.GetRecord(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if f.OwnerID != requester {
		s.writeError(w, r, common.ErrForbidden)
		return
	}

	if err := s.files.SetVisibility(r.Context(), id, models.Visibility(body.Visibility)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
