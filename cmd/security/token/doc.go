// Package token reads the timing claims of platform-issued bearer tokens.
//
// Tokens are JWTs. The client never holds the signing key, so claims are decoded
// without signature verification and are used only to schedule renewals.
//
// Renewal policy:
//   - A token is renewed once 70% of its remaining lifetime, measured at the
//     moment it was received, has elapsed.
//   - A token without an "exp" claim is a protocol violation (ErrMissingExpiry).
package token
