package gdrive

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Client performs Drive operations on behalf of one authorized account.
// A Client is cheap to build; the server builds one per request.
type Client struct {
	svc    *drive.Service
	logger *slog.Logger
}

// ClientConfig describes how to build an authorized Client.
type ClientConfig struct {
	OAuth     OAuthConfig
	TokenPath string
	// Endpoint overrides the Drive API base URL (tests, emulators).
	// Empty uses the library default.
	Endpoint string
	// Timeout bounds each provider round trip. Zero means no timeout.
	Timeout time.Duration
}

// NewClient creates a Client that sends requests through httpClient.
// httpClient must already attach credentials.
func NewClient(ctx context.Context, httpClient *http.Client, endpoint string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gdrive: creating drive service: %w", err)
	}

	return &Client{svc: svc, logger: logger}, nil
}

// NewClientFromTokenFile loads the credential cache and returns a Client whose
// requests carry a refreshing bearer token. Refreshed tokens are written back
// to the cache. Returns ErrNotLoggedIn when no cache exists.
//
// ctx is bound to the token source and must outlive every call made through
// the Client, including background work started after the request returns.
func NewClientFromTokenFile(ctx context.Context, cc ClientConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ts, err := TokenSourceFromPath(ctx, cc.OAuth, cc.TokenPath, logger)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
		Timeout:   cc.Timeout,
	}

	return NewClient(ctx, httpClient, cc.Endpoint, logger)
}
