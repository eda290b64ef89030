package keys

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"

	"github.com/golang-jwt/jwt/v5"

	customErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
)

// JWK is the RFC 7517 representation of an RSA public key.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JWKSet struct {
	Keys []JWK `json:"keys"`
}

func PublicJWK(pub *rsa.PublicKey) JWK {
	n := b64(pub.N.Bytes())
	e := b64(big.NewInt(int64(pub.E)).Bytes())
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: thumbprint(e, n),
		N:   n,
		E:   e,
	}
}

// PublishJWKS returns the key set resource servers fetch to verify access tokens.
func PublishJWKS(p Provider) (JWKSet, error) {
	pub, err := p.VerificationKey()
	if err != nil {
		return JWKSet{}, err
	}
	return JWKSet{Keys: []JWK{PublicJWK(pub)}}, nil
}

// thumbprint computes the RFC 7638 key id. Members must be in lexical order.
func thumbprint(e, n string) string {
	canonical, _ := json.Marshal(struct {
		E   string `json:"e"`
		Kty string `json:"kty"`
		N   string `json:"n"`
	}{E: e, Kty: "RSA", N: n})
	sum := sha256.Sum256(canonical)
	return b64(sum[:])
}

func b64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// PublicKeyFromPEM accepts either a public key or a private key PEM and
// returns the RSA public key.
func PublicKeyFromPEM(data []byte) (*rsa.PublicKey, error) {
	if pub, err := jwt.ParseRSAPublicKeyFromPEM(data); err == nil {
		return pub, nil
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, customErrors.WrapKeyUnavailable(err, "parse PEM")
	}
	return &priv.PublicKey, nil
}
