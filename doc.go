// Package authcore is the authentication and authorization core for a
// multi-instance service. It issues and validates short-lived signed bearer
// credentials, enforces a fixed ranked role hierarchy, revokes credentials
// across instances through a shared redis store (degrading to per-instance
// state during outages), hashes user secrets with argon2id, and throttles
// authentication attempts with window limits and fixed-duration lockouts.
//
// The Gateway is the single entry point consumed by transports. Both the
// request-response layer and streaming connection handlers resolve callers
// through Gateway.ResolvePrincipal, so authorization semantics are identical
// regardless of transport; a streaming entry point must resolve before
// accepting any message exchange and reject the connection itself on failure.
//
// Construction goes through the Builder:
//
//	gw, err := authcore.New().
//		WithConfig(cfg).
//		WithRedis(client).
//		WithUserSource(users).
//		Build()
package authcore
