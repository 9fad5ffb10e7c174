// Package gcloud builds client options for the Google Cloud speech APIs.
package gcloud

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// CloudPlatformScope is the scope both Speech-to-Text and Text-to-Speech accept.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Credentials selects how a Google client authenticates.
type Credentials struct {
	// APIKey, when set, is sent as ?key= and no OAuth is used.
	APIKey string

	// Endpoint overrides the service base URL (tests, regional endpoints).
	// It must end with a slash.
	Endpoint string

	// HTTPClient, when set without an API key, is used as-is and must
	// carry its own authentication.
	HTTPClient *http.Client

	// TokenSource overrides Application Default Credentials.
	TokenSource oauth2.TokenSource
}

// ClientOptions returns options for a google.golang.org/api NewService call.
// Without an API key or token source it falls back to Application Default
// Credentials (GOOGLE_APPLICATION_CREDENTIALS or gcloud auth).
func ClientOptions(ctx context.Context, c Credentials) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}

	switch {
	case c.APIKey != "":
		opts = append(opts, option.WithAPIKey(c.APIKey))
	case c.TokenSource != nil:
		opts = append(opts, option.WithTokenSource(c.TokenSource))
	case c.HTTPClient != nil:
		// Caller-authenticated client, e.g. an httptest server.
		opts = append(opts, option.WithHTTPClient(c.HTTPClient))
	default:
		ts, err := google.DefaultTokenSource(ctx, CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("gcloud: no API key and no default credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(ts))
	}
	return opts, nil
}
