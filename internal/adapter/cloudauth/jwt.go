// Package cloudauth signs short-lived JWT assertions for hosted-backend
// adapter kinds that authenticate via a signed assertion (e.g. a workload
// identity federation exchange) instead of a static API key.
package cloudauth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// AssertionSigner mints signed JWT assertions for one adapter identity.
type AssertionSigner struct {
	subject    string
	privateKey *rsa.PrivateKey
}

// NewAssertionSigner creates a signer for subject (the adapter/service
// identity) from a PEM-encoded RSA private key.
func NewAssertionSigner(subject string, privateKeyPEM []byte) (*AssertionSigner, error) {
	privateKey, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("cloudauth: parse private key: %w", err)
	}
	return &AssertionSigner{subject: subject, privateKey: privateKey}, nil
}

// Sign mints a JWT valid for the given duration (callers should keep this
// short-lived, matching the 10-minute ceiling hosted identity providers
// typically enforce for assertion exchange).
func (s *AssertionSigner) Sign(duration time.Duration, audience string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.subject,
		Subject:   s.subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("cloudauth: sign token: %w", err)
	}
	return signed, nil
}

func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("cloudauth: failed to decode PEM block")
	}

	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cloudauth: parse PKCS8 key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("cloudauth: private key is not RSA")
	}
	return rsaKey, nil
}
