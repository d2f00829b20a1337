// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes using Go 1.22+ method and pattern
routing.

# Routes

	GET  /health
	GET  /
	POST /quota/validate
	POST /quota/reset
	GET  /research/{researchId}/quota/stats
	PUT  /research/{researchId}/quota-config
	GET  /research/{researchId}/quota-config

All routes except health and root are wrapped with request logging.
*/
package router
