// Package internal holds the server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses, and routing
// - auth: token issuance, password hashing, and the role hierarchy
// - domain: business logic and domain models per entity
// - storage: PostgreSQL repositories and schema migrations
// - jobs: background job queue and workers
// - email: outbound notification delivery
// - config, metrics, audit: cross-cutting concerns
package internal
