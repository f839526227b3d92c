package paseto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// GenerateKeyPair creates a new Ed25519 key pair for v4.public tokens.
func GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating ed25519 key pair: %w", err)
	}
	return public, private, nil
}

// ParsePrivateKey accepts a PKCS8 PEM block, a raw 64 byte private key
// or a raw 32 byte seed.
func ParsePrivateKey(data []byte) (ed25519.PrivateKey, error) {
	if block, _ := pem.Decode(data); block != nil {
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, newError(ErrInvalidKey, fmt.Errorf("parsing PKCS8 private key: %w", err))
		}
		private, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, newError(ErrInvalidKey, fmt.Errorf("private key is %T, not ed25519", key))
		}
		return private, nil
	}

	switch len(data) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(append([]byte(nil), data...)), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(data), nil
	}

	return nil, newError(ErrInvalidKey, fmt.Errorf("private key has %d bytes and no PEM block", len(data)))
}

// ParsePublicKey accepts a PKIX (SPKI) PEM block or a raw 32 byte key.
func ParsePublicKey(data []byte) (ed25519.PublicKey, error) {
	if block, _ := pem.Decode(data); block != nil {
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, newError(ErrInvalidKey, fmt.Errorf("parsing PKIX public key: %w", err))
		}
		public, ok := key.(ed25519.PublicKey)
		if !ok {
			return nil, newError(ErrInvalidKey, fmt.Errorf("public key is %T, not ed25519", key))
		}
		return public, nil
	}

	if len(data) == ed25519.PublicKeySize {
		return ed25519.PublicKey(append([]byte(nil), data...)), nil
	}

	return nil, newError(ErrInvalidKey, fmt.Errorf("public key has %d bytes and no PEM block", len(data)))
}

// MarshalPrivateKeyPEM encodes key as a PKCS8 PEM block.
func MarshalPrivateKeyPEM(key ed25519.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// MarshalPublicKeyPEM encodes key as a PKIX PEM block.
func MarshalPublicKeyPEM(key ed25519.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
