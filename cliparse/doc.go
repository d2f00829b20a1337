// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration parsing from CLI flags and
environment variables.

# Usage

	cfg, err := cliparse.ParseFlags(os.Args[1:])

CLI flags take precedence over environment variables. Required settings
return an error if missing from both sources.

# Settings

  - DATABASE_URL (-d): database connection string (required)
  - DATABASE_TYPE (-t): "sqlite" or "postgres" (default: sqlite)
  - PORT (-p): server port (default: 8090)
  - VALIDATE_TIMEOUT (-validate-timeout): total deadline for one validate
    call, parsed with time.ParseDuration (default: 5s)
  - STORE_RETRIES (-store-retries): bounded retry attempts for transient
    store failures and rollback decrements (default: 3)
*/
package cliparse
