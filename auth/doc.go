// Package auth identifies callers of the status endpoints.
//
// Status reports are public, but the detailed view can include stack traces
// and internal messages. An Authenticator inspects request headers and
// returns an Identity; Middleware attaches that identity to the request
// context so handlers can decide what to reveal. Failed or missing
// credentials never reject a request here.
//
// Two methods are provided: bearer JWTs signed with a shared HMAC secret
// (JWTAuthenticator) and static API keys stored as SHA-256 hashes
// (APIKeyAuthenticator). Chain tries several in order.
package auth
