package config

import "encoding/json"

const redacted = "[REDACTED]"

// Secret is a string that hides its value when printed or marshalled
type Secret string

// Value returns the underlying value
func (s Secret) Value() string { return string(s) }

// IsZero reports whether the secret is empty
func (s Secret) IsZero() bool { return s == "" }

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string {
	return `config.Secret("` + s.String() + `")`
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s Secret) MarshalYAML() (any, error) {
	return s.String(), nil
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
