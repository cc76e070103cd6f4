package cloudauth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func generateTestKeyPair(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	return privateKey, pemData
}

func TestNewAssertionSigner_InvalidPEM(t *testing.T) {
	if _, err := NewAssertionSigner("adapter-x", []byte("not a valid pem")); err == nil {
		t.Error("expected error for invalid PEM")
	} else if !strings.Contains(err.Error(), "decode PEM") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSign_RoundTrip(t *testing.T) {
	privateKey, pemData := generateTestKeyPair(t)
	signer, err := NewAssertionSigner("adapter-x", pemData)
	if err != nil {
		t.Fatalf("NewAssertionSigner: %v", err)
	}

	token, err := signer.Sign(5*time.Minute, "https://backend.example/token")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
		return &privateKey.PublicKey, nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if !parsed.Valid {
		t.Error("token is not valid")
	}
	if parsed.Method.Alg() != "RS256" {
		t.Errorf("expected RS256, got %s", parsed.Method.Alg())
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("failed to get claims")
	}
	if iss, _ := claims["iss"].(string); iss != "adapter-x" {
		t.Errorf("expected iss=adapter-x, got %v", claims["iss"])
	}
}

func TestSign_PKCS8Key(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pkcs8, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		t.Fatalf("marshal pkcs8: %v", err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})

	signer, err := NewAssertionSigner("adapter-y", pemData)
	if err != nil {
		t.Fatalf("NewAssertionSigner with PKCS8 key: %v", err)
	}
	if _, err := signer.Sign(time.Minute, "aud"); err != nil {
		t.Fatalf("Sign: %v", err)
	}
}
