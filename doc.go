// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the quota-gate API server.

quota-gate is an admission control service for research studies: it decides
in real time whether an incoming participant may proceed (QUALIFIED), passes
through when no quota governs them (NO_CONFIG), or turns them away when
every quota cell they match is already full (OVERQUOTA) - and does so
correctly when many participants validate concurrently against the same
study, because the only counter mutation is an atomic conditional increment
in the database.

# Starting the Server

The server reads configuration from environment variables (optionally a
.env file) or CLI flags:

	DATABASE_URL=postgres://... DATABASE_TYPE=postgres go run main.go

Or with flags:

	go run main.go -p 8090 -t sqlite -d "file:quota.db"

# Configuration

Required settings:

  - DATABASE_URL (-d): database connection string

Optional settings:

  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - PORT (-p): server port (default: 8090)
  - VALIDATE_TIMEOUT (-validate-timeout): total deadline per validate call
    (default: 5s)
  - STORE_RETRIES (-store-retries): bounded retries for transient store
    failures (default: 3)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - quota: cell matching and the all-or-nothing admission protocol
  - store: quota configuration plus the atomic counter primitives
  - handlers: HTTP request handlers (validation, stats, reset, config)
  - router: route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: request/response and domain types
  - db: schema creation
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
