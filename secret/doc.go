// Package secret resolves credentials referenced from configuration.
//
// Probe targets such as database DSNs and Redis passwords rarely belong in a
// config file. They can instead be written as:
//   - Environment expansion: postgres://app:${DB_PASSWORD}@db:5432/orders
//   - Full references:       secretref:env:REDIS_PASSWORD
//   - File references:       secretref:file:/run/secrets/orders-dsn
//   - Inline references:     Bearer secretref:env:STATUS_TOKEN
//
// NewDefaultResolver handles the env and file providers; other Provider
// implementations can be registered on a Resolver.
package secret
