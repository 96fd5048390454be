package keys

import (
	"crypto/rsa"
	"net/http"
	"os"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	commonerrors "github.com/aldabergenov/auth-service/internal/common/errors"
)

// ErrKeyUnavailable means the private signing key could not be loaded.
// It is fatal to the request that needed it, not to the process.
var ErrKeyUnavailable = commonerrors.NewDomainError(
	"KEY_UNAVAILABLE",
	commonerrors.CategoryInternal,
	http.StatusInternalServerError,
	"signing key unavailable",
)

// Provider holds the process-wide signing material: the RSA private key
// for access tokens, its key id published through JWKS, and the shared
// secret for refresh tokens. All of it is read-only after first load.
type Provider struct {
	privateKeyPath string
	keyID          string
	refreshSecret  []byte

	mu         sync.RWMutex
	privateKey *rsa.PrivateKey
}

func NewProvider(privateKeyPath, keyID, refreshSecret string) *Provider {
	return &Provider{
		privateKeyPath: privateKeyPath,
		keyID:          keyID,
		refreshSecret:  []byte(refreshSecret),
	}
}

// PrivateKey loads the RSA private key from disk on first use and caches
// it. A failed load is reported to the caller and retried on the next call.
func (p *Provider) PrivateKey() (*rsa.PrivateKey, error) {
	p.mu.RLock()
	key := p.privateKey
	p.mu.RUnlock()

	if key != nil {
		return key, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.privateKey != nil {
		return p.privateKey, nil
	}

	pemBytes, err := os.ReadFile(p.privateKeyPath)
	if err != nil {
		return nil, ErrKeyUnavailable.WithCause(err)
	}

	key, err = jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, ErrKeyUnavailable.WithCause(err)
	}

	p.privateKey = key
	return key, nil
}

func (p *Provider) KeyID() string {
	return p.keyID
}

func (p *Provider) RefreshSecret() []byte {
	return p.refreshSecret
}
