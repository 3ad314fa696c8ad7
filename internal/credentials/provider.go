// Package credentials turns a service-account key into short-lived bearer
// tokens for the indexing endpoint.
package credentials

import (
	"context"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

// Config locates the signing material. JSON takes precedence over File.
type Config struct {
	File   string
	JSON   string
	Scopes []string
	// HTTPClient is used for the token exchange; nil means http.DefaultClient.
	HTTPClient *http.Client
}

// Provider loads the key on first use and refreshes tokens when they expire.
// Tokens live in memory only, for the lifetime of the Provider; the app builds
// one Provider per run.
type Provider struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	source oauth2.TokenSource
}

// New returns a Provider; nothing is read until AccessToken is called.
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{cfg: cfg, logger: logger}
}

// AccessToken returns a valid bearer token, loading the key and exchanging
// it for a token as needed. Load failures wrap indexing.ErrCredentialLoad,
// exchange failures wrap indexing.ErrTokenRefresh; both are fatal.
func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.source == nil {
		source, err := p.load(ctx)
		if err != nil {
			p.logger.Error("failed to load credentials", zap.String("source", p.describe()), zap.Error(err))
			return "", indexing.NewError(indexing.KindFatal, "load credentials", p.describe(), indexing.ErrCredentialLoad, err)
		}
		p.source = source
		p.logger.Debug("credentials loaded", zap.String("source", p.describe()))
	}

	tok, err := p.source.Token()
	if err != nil {
		p.logger.Error("failed to refresh token", zap.Error(err))
		return "", indexing.NewError(indexing.KindFatal, "refresh token", "", indexing.ErrTokenRefresh, err)
	}
	if tok.AccessToken == "" {
		return "", indexing.NewError(indexing.KindFatal, "refresh token", "", indexing.ErrTokenRefresh, errors.New("empty access token"))
	}
	return tok.AccessToken, nil
}

func (p *Provider) load(ctx context.Context) (oauth2.TokenSource, error) {
	raw, err := p.readKey()
	if err != nil {
		return nil, err
	}
	jwtCfg, err := google.JWTConfigFromJSON(raw, p.cfg.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	if jwtCfg.Email == "" {
		return nil, errors.New("service account client_email is missing")
	}
	if block, _ := pem.Decode(jwtCfg.PrivateKey); block == nil {
		return nil, errors.New("service account private_key is not PEM encoded")
	}

	// The token source outlives this call; keep values but drop cancellation.
	base := context.WithoutCancel(ctx)
	if p.cfg.HTTPClient != nil {
		base = context.WithValue(base, oauth2.HTTPClient, p.cfg.HTTPClient)
	}
	return jwtCfg.TokenSource(base), nil
}

func (p *Provider) readKey() ([]byte, error) {
	if strings.TrimSpace(p.cfg.JSON) != "" {
		return []byte(p.cfg.JSON), nil
	}
	if p.cfg.File == "" {
		return nil, errors.New("no credential source configured")
	}
	// #nosec G304 -- the key path comes from operator configuration.
	data, err := os.ReadFile(p.cfg.File)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return data, nil
}

func (p *Provider) describe() string {
	if strings.TrimSpace(p.cfg.JSON) != "" {
		return "inline json"
	}
	return p.cfg.File
}
