package auth

import (
	"context"
	"fmt"
	"strings"
)

// Logger is the logging surface used by the library. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// TokenService signs and verifies claims tokens
type TokenService interface {
	Sign(claims Claims) (string, error)
	Verify(token string) (Claims, error)
}

// ClaimsVerifier is the part of TokenService the request pipeline needs
type ClaimsVerifier interface {
	Verify(token string) (Claims, error)
}

// UserFinder resolves a token subject to a user record. Implementations
// return ErrIdentityNotFound (or a nil user) when there is no match.
type UserFinder interface {
	FindUserBySubject(ctx context.Context, subject string) (*User, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) { fmt.Print(logLine("DBG", msg, args)) }
func (d defLogger) Info(msg string, args ...any)  { fmt.Print(logLine("INF", msg, args)) }
func (d defLogger) Warn(msg string, args ...any)  { fmt.Print(logLine("WRN", msg, args)) }
func (d defLogger) Error(msg string, args ...any) { fmt.Print(logLine("ERR", msg, args)) }

func logLine(level, msg string, args []any) string {
	var b strings.Builder
	b.WriteString("[" + level + "] AUTH ")
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	b.WriteByte('\n')
	return b.String()
}

// nopLogger discards everything
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger returns a Logger that discards all output
func NopLogger() Logger { return nopLogger{} }

func ensureLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
