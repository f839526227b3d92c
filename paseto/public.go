package paseto

import (
	"crypto/ed25519"
	"fmt"
)

// SignPublic signs message as a v4.public token. The footer is
// authenticated but not encrypted; implicit is authenticated and
// never transmitted.
func SignPublic(key ed25519.PrivateKey, message, footer, implicit []byte) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", newError(ErrInvalidKey, fmt.Errorf("private key has %d bytes, want %d", len(key), ed25519.PrivateKeySize))
	}

	h := header(V4, Public)
	sig := ed25519.Sign(key, PAE([]byte(h), message, footer, implicit))

	payload := make([]byte, 0, len(message)+len(sig))
	payload = append(payload, message...)
	payload = append(payload, sig...)

	return Encode(V4, Public, payload, footer), nil
}

// VerifyPublic decodes token and checks its signature against key.
// The returned token is only trustworthy when err is nil.
func VerifyPublic(key ed25519.PublicKey, token string, implicit []byte) (*Token, error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, newError(ErrInvalidKey, fmt.Errorf("public key has %d bytes, want %d", len(key), ed25519.PublicKeySize))
	}

	t, err := Decode(token)
	if err != nil {
		return nil, err
	}

	if t.Version != V4 {
		return nil, newError(ErrUnsupportedVersion, fmt.Errorf("version %q", t.Version))
	}

	if t.Purpose != Public {
		return nil, newError(ErrUnsupportedPurpose, fmt.Errorf("expected %q, got %q", Public, t.Purpose))
	}

	m2 := PAE([]byte(t.Header()), t.Message, t.Footer, implicit)
	if !ed25519.Verify(key, m2, t.Signature) {
		return nil, newError(ErrInvalidSignature, nil)
	}

	return t, nil
}
