// Package paseto implements the wire format and the v4.public primitive of
// Platform-Agnostic Security Tokens.
//
// A token is four dot separated segments:
//
//	version.purpose.base64url(payload)[.base64url(footer)]
//
// For the public purpose the payload is the message followed by a detached
// Ed25519 signature computed over PAE(header, message, footer, implicit).
// The package never interprets the message; claims handling lives in the
// parent auth package.
package paseto
