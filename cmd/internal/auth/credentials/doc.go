// Package credentials holds the client's bearer credentials and decides when they
// must be renewed.
//
// Three secrets are tracked: the long-lived access key supplied by the
// application, a refresh token minted per session, and a short-lived access token
// minted from the refresh token. Renewal times are derived from each token's
// "exp" claim (see package token), never from a separately supplied TTL.
//
// Store is a value object with read-only accessors. Only Manager mutates it.
// Network calls are delegated to a Renewer so this package stays transport-free.
package credentials
