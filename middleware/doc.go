// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and response helpers.

# Middleware

  - WithLogging: structured request/completion logging via slog
  - CORS: cross-origin headers plus preflight handling, applied to the
    whole mux in main

# Helpers

  - JSONResponse: encode a value with status code and content type
  - ErrorResponse: standard error envelope {error, message}
  - ParseJSONBody: decode a request body into a struct
*/
package middleware
