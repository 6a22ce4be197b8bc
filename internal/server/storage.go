package server

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/contentstore"
	"github.com/dmitrijs2005/securefiles/internal/contentstore/badgerstore"
	"github.com/dmitrijs2005/securefiles/internal/contentstore/gateway"
	"github.com/dmitrijs2005/securefiles/internal/contentstore/memory"
	"github.com/dmitrijs2005/securefiles/internal/contentstore/s3store"
	"github.com/dmitrijs2005/securefiles/internal/filex"
	"github.com/dmitrijs2005/securefiles/internal/server/config"
)

// openStore builds the content store named by c.StorageProvider. The returned
// close func is never nil.
func openStore(ctx context.Context, c *config.Config) (contentstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch c.StorageProvider {
	case config.ProviderS3:
		s, err := s3store.NewFromOptions(ctx, s3store.Options{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("s3 store init error: %w", err)
		}
		return s, noop, nil

	case config.ProviderGateway:
		if c.GatewayAPIKey == "" {
			return nil, noop, fmt.Errorf("%w: gateway api key is not set", common.ErrConfiguration)
		}
		return gateway.New(gateway.Options{
			UploadURL:  c.GatewayUploadURL,
			GatewayURL: c.GatewayURL,
			APIKey:     c.GatewayAPIKey,
			RetryMax:   c.GatewayRetryMax,
			Timeout:    c.StorageTimeout,
		}), noop, nil

	case config.ProviderBadger:
		path := c.BadgerPath
		if path != "" {
			dir, err := filex.EnsureDir(path)
			if err != nil {
				return nil, noop, fmt.Errorf("badger store init error: %w", err)
			}
			path = dir
		}
		s, err := badgerstore.Open(path)
		if err != nil {
			return nil, noop, fmt.Errorf("badger store init error: %w", err)
		}
		return s, s.Close, nil

	case config.ProviderMemory:
		// Blobs are lost on exit; for local development only.
		return memory.New(), noop, nil
	}

	return nil, noop, fmt.Errorf("%w: unknown storage provider %q", common.ErrConfiguration, c.StorageProvider)
}
