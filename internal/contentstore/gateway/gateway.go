// Package gateway stores blobs on an IPFS pinning service (Lighthouse-style
// upload API) and fetches them back through an HTTP gateway. The remote side
// assigns the CID.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/contentstore"
	"github.com/hashicorp/go-retryablehttp"
)

const ProviderName = "GATEWAY"

// Options configures the gateway backend.
type Options struct {
	// UploadURL is the pinning API base, e.g. https://upload.lighthouse.storage/api/v0.
	UploadURL string
	// GatewayURL serves /ipfs/<cid>, e.g. https://gateway.lighthouse.storage.
	GatewayURL string
	APIKey     string
	RetryMax   int
	Timeout    time.Duration
}

type Store struct {
	client  *retryablehttp.Client
	options Options
}

type uploadResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

func New(o Options) *Store {
	c := retryablehttp.NewClient()
	c.Logger = nil
	c.RetryMax = o.RetryMax
	c.RetryWaitMin = 100 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	if o.Timeout > 0 {
		c.HTTPClient.Timeout = o.Timeout
	}
	o.UploadURL = strings.TrimRight(o.UploadURL, "/")
	o.GatewayURL = strings.TrimRight(o.GatewayURL, "/")
	return &Store{client: c, options: o}
}

func (s *Store) Provider() string { return ProviderName }

func (s *Store) Upload(ctx context.Context, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "blob")
	if err != nil {
		return "", contentstore.Unavailable("upload", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", contentstore.Unavailable("upload", err)
	}
	if err := mw.Close(); err != nil {
		return "", contentstore.Unavailable("upload", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.options.UploadURL+"/add", body.Bytes())
	if err != nil {
		return "", contentstore.Unavailable("upload", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if s.options.APIKey != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+s.options.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", contentstore.Unavailable("upload", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", contentstore.Unavailable("upload", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", contentstore.Unavailable("upload", err)
	}
	if err := contentstore.ValidateCID(out.Hash); err != nil {
		return "", contentstore.Unavailable("upload", fmt.Errorf("gateway returned malformed cid"))
	}
	return out.Hash, nil
}

func (s *Store) Download(ctx context.Context, contentID string) ([]byte, error) {
	if err := contentstore.ValidateCID(contentID); err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.options.GatewayURL+"/ipfs/"+contentID, nil)
	if err != nil {
		return nil, contentstore.Unavailable("download", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, contentstore.Unavailable("download", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, common.ErrorNotFound
	case resp.StatusCode/100 != 2:
		return nil, contentstore.Unavailable("download", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, contentstore.Unavailable("download", err)
	}
	return data, nil
}
