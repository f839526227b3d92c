package paseto

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"
)

// Version is the protocol version segment
type Version string

// Purpose is the purpose segment
type Purpose string

const (
	// V4 is the modern version family, Ed25519 for public tokens
	V4 Version = "v4"

	// Local tokens are symmetrically encrypted
	Local Purpose = "local"
	// Public tokens are signed and verified with a key pair
	Public Purpose = "public"
)

// signatureSizes holds the detached signature length per supported version.
var signatureSizes = map[Version]int{
	V4: ed25519.SignatureSize,
}

// encoding rejects non-zero trailing bits so every token has one spelling.
var encoding = base64.RawURLEncoding.Strict()

// Token is a decoded token. For public tokens Message and Signature
// are the two halves of Payload.
type Token struct {
	Version   Version
	Purpose   Purpose
	Payload   []byte
	Message   []byte
	Signature []byte
	Footer    []byte
}

// Header returns the version and purpose prefix, e.g. "v4.public.".
func (t *Token) Header() string {
	return header(t.Version, t.Purpose)
}

func header(version Version, purpose Purpose) string {
	return string(version) + "." + string(purpose) + "."
}

// SupportedVersion reports whether version can be decoded.
func SupportedVersion(version Version) bool {
	_, ok := signatureSizes[version]
	return ok
}

// SignatureSize returns the signature length for version, or zero.
func SignatureSize(version Version) int {
	return signatureSizes[version]
}

// Encode joins the segments of a token. The footer segment is omitted
// when footer is empty.
func Encode(version Version, purpose Purpose, payload, footer []byte) string {
	var b strings.Builder
	b.WriteString(header(version, purpose))
	b.WriteString(encoding.EncodeToString(payload))
	if len(footer) > 0 {
		b.WriteByte('.')
		b.WriteString(encoding.EncodeToString(footer))
	}
	return b.String()
}

// Decode parses a token string. It does not verify anything.
func Decode(token string) (*Token, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 && len(parts) != 4 {
		return nil, newError(ErrMalformedToken, fmt.Errorf("expected 3 or 4 segments, got %d", len(parts)))
	}

	version := Version(parts[0])
	if !SupportedVersion(version) {
		return nil, newError(ErrUnsupportedVersion, fmt.Errorf("version %q", parts[0]))
	}

	purpose := Purpose(parts[1])
	if purpose != Local && purpose != Public {
		return nil, newError(ErrUnsupportedPurpose, fmt.Errorf("purpose %q", parts[1]))
	}

	payload, err := encoding.DecodeString(parts[2])
	if err != nil {
		return nil, newError(ErrMalformedToken, fmt.Errorf("payload: %w", err))
	}

	t := &Token{
		Version: version,
		Purpose: purpose,
		Payload: payload,
	}

	if len(parts) == 4 {
		if parts[3] == "" {
			return nil, newError(ErrMalformedToken, fmt.Errorf("empty footer segment"))
		}
		footer, err := encoding.DecodeString(parts[3])
		if err != nil {
			return nil, newError(ErrMalformedToken, fmt.Errorf("footer: %w", err))
		}
		t.Footer = footer
	}

	if purpose == Local {
		return t, nil
	}

	sigLen := signatureSizes[version]
	if len(payload) < sigLen {
		return nil, newError(ErrMalformedToken, fmt.Errorf("payload has %d bytes, signature needs %d", len(payload), sigLen))
	}

	split := len(payload) - sigLen
	t.Message = payload[:split]
	t.Signature = payload[split:]

	return t, nil
}
