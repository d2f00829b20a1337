// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers implements the HTTP request handlers.

# Handler Groups

  - ValidationHandler: participant admission (POST /quota/validate)
  - StatsHandler: fill levels and the confirmed bulk reset
  - ConfigHandler: study-setup reads and writes of quota configuration

Handlers follow dependency injection: each is constructed with the database
connection and parsed configuration, and holds no other state. All
concurrency control lives in the store's conditional increment; handlers can
run in any number of processes against the same database.
*/
package handlers
