package keys

import (
	"crypto/rsa"
	"errors"
	"os"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	customErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
)

// Provider hands out the RSA key pair used for access tokens.
type Provider interface {
	SigningKey() (*rsa.PrivateKey, error)
	VerificationKey() (*rsa.PublicKey, error)
}

// FileProvider reads PEM files on first use and keeps the parsed keys for the
// life of the process. A failed read is retried on the next call.
type FileProvider struct {
	privatePath string
	publicPath  string

	mu         sync.Mutex
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// NewFileProvider builds a provider for the given PEM paths. publicPath may be
// empty, in which case the public key is derived from the private key.
func NewFileProvider(privatePath, publicPath string) *FileProvider {
	return &FileProvider{privatePath: privatePath, publicPath: publicPath}
}

// Load forces both keys to be read now, so startup can fail fast.
func (p *FileProvider) Load() error {
	if _, err := p.SigningKey(); err != nil {
		return err
	}
	_, err := p.VerificationKey()
	return err
}

func (p *FileProvider) SigningKey() (*rsa.PrivateKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadPrivate()
}

func (p *FileProvider) VerificationKey() (*rsa.PublicKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.publicKey != nil {
		return p.publicKey, nil
	}

	if p.publicPath == "" {
		priv, err := p.loadPrivate()
		if err != nil {
			return nil, err
		}
		p.publicKey = &priv.PublicKey
		return p.publicKey, nil
	}

	pubPem, err := os.ReadFile(p.publicPath)
	if err != nil {
		return nil, customErrors.WrapKeyUnavailable(err, "read public key")
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPem)
	if err != nil {
		return nil, customErrors.WrapKeyUnavailable(err, "parse public key")
	}
	p.publicKey = pubKey
	return p.publicKey, nil
}

func (p *FileProvider) loadPrivate() (*rsa.PrivateKey, error) {
	if p.privateKey != nil {
		return p.privateKey, nil
	}
	if p.privatePath == "" {
		return nil, customErrors.WrapKeyUnavailable(errors.New("no private key path configured"), "read private key")
	}

	privPem, err := os.ReadFile(p.privatePath)
	if err != nil {
		return nil, customErrors.WrapKeyUnavailable(err, "read private key")
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPem)
	if err != nil {
		return nil, customErrors.WrapKeyUnavailable(err, "parse private key")
	}
	p.privateKey = privKey
	return p.privateKey, nil
}

// StaticProvider serves an in-memory key pair.
type StaticProvider struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

func NewStaticProvider(priv *rsa.PrivateKey) *StaticProvider {
	sp := &StaticProvider{Private: priv}
	if priv != nil {
		sp.Public = &priv.PublicKey
	}
	return sp
}

func (s *StaticProvider) SigningKey() (*rsa.PrivateKey, error) {
	if s.Private == nil {
		return nil, customErrors.WrapKeyUnavailable(errors.New("no private key"), "static provider")
	}
	return s.Private, nil
}

func (s *StaticProvider) VerificationKey() (*rsa.PublicKey, error) {
	if s.Public == nil {
		return nil, customErrors.WrapKeyUnavailable(errors.New("no public key"), "static provider")
	}
	return s.Public, nil
}
