package auth

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Reserved claim keys produced by the issuing flows
const (
	ClaimSubject  = "sub"
	ClaimIssuedAt = "iat"
	ClaimRole     = "role"
	ClaimName     = "name"
	ClaimEmail    = "email"
)

// DefaultRole is assigned to tokens issued on signup and signin
const DefaultRole = "user"

// Claims is the scalar-valued mapping embedded in a token. Values are
// strings, numbers or booleans; decoded numbers are float64.
type Claims map[string]any

// Subject returns the sub claim
func (c Claims) Subject() string {
	return c.String(ClaimSubject)
}

// Role returns the role claim
func (c Claims) Role() string {
	return c.String(ClaimRole)
}

// Name returns the name claim
func (c Claims) Name() string {
	return c.String(ClaimName)
}

// Email returns the email claim
func (c Claims) Email() string {
	return c.String(ClaimEmail)
}

// String returns the value for key if it is a string
func (c Claims) String(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// Number returns the value for key as float64 if it is numeric
func (c Claims) Number(key string) (float64, bool) {
	switch v := c[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// IssuedAt returns the iat claim, stored as Unix milliseconds
func (c Claims) IssuedAt() time.Time {
	ms, ok := c.Number(ClaimIssuedAt)
	if !ok {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms))
}

// HasRole checks the global role claim
func (c Claims) HasRole(role string) bool {
	return role != "" && c.Role() == role
}

// Clone returns a shallow copy, values are scalars so it is a full copy
func (c Claims) Clone() Claims {
	out := make(Claims, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Merge overlays other onto a copy of c. Keys listed in protected keep
// the value from c when c has one.
func (c Claims) Merge(other Claims, protected ...string) Claims {
	out := c.Clone()
	for k, v := range other {
		if _, exists := out[k]; exists && contains(protected, k) {
			continue
		}
		out[k] = v
	}
	return out
}

// ValidateClaims accepts only a string keyed mapping whose values are
// strings, finite numbers or booleans. The returned Claims is a copy.
func ValidateClaims(candidate any) (Claims, error) {
	var raw map[string]any
	switch v := candidate.(type) {
	case Claims:
		raw = v
	case map[string]any:
		raw = v
	default:
		return nil, withCause(ErrInvalidClaims, fmt.Errorf("claims must be an object, got %T", candidate))
	}

	if raw == nil {
		return nil, withCause(ErrInvalidClaims, fmt.Errorf("claims must be an object, got null"))
	}

	out := make(Claims, len(raw))
	for key, value := range raw {
		if !isScalar(value) {
			return nil, withCause(ErrInvalidClaims, fmt.Errorf("claim %q has non scalar value %T", key, value)).
				WithMetadata(map[string]any{"claim": key})
		}
		out[key] = value
	}
	return out, nil
}

func isScalar(v any) bool {
	switch n := v.(type) {
	case string, bool:
		return true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	case json.Number:
		_, err := n.Float64()
		return err == nil
	}
	return false
}

func contains(list []string, s string) bool {
	for _, el := range list {
		if el == s {
			return true
		}
	}
	return false
}
