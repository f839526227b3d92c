// Package auth issues and verifies PASETO v4.public claims tokens for the
// blog API and decides whether a request is authenticated.
//
// Tokens:
//   - Sign serializes a scalar-valued Claims map, binds an expiry in the
//     authenticated footer and signs with the process Ed25519 key.
//   - Verify checks signature, expiry and the claims shape. Every failure
//     is reported as the same unauthorized error; the reason is only logged
//     by TokenServiceImpl.
//
// Requests:
//   - RequestAuth is the per-request state (NoToken, TokenExtracted,
//     ClaimsVerified, IdentityResolved, Authorized or Rejected).
//   - RequestAuthenticator drives that state from an Authorization header,
//     resolving the subject through a UserFinder. The pasetoware package
//     threads it through go-router handlers.
//
// Persistence:
//   - Users and posts live in bun models. The users store embeds the generic
//     go-repository-bun repository; RepositoryManager groups the
//     repositories and creates the schema for sqlite or postgres.
//
// Hooks:
//   - ActivitySink receives sign up, sign in and post events from the
//     controller; activitymap normalizes them.
//   - ClaimsDecorator adds extension claims before a token is issued. The
//     identity claims it receives are read only.
package auth
