// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            int
	DatabaseURL     string
	DatabaseType    string
	ValidateTimeout time.Duration
	StoreRetries    int
}

// ParseFlags validates flags, falling back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var timeoutStr string

	fs := flag.NewFlagSet("quota-gate", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&timeoutStr, "validate-timeout", "", "Total deadline for one validate call (e.g. 5s)")
	fs.IntVar(&cfg.StoreRetries, "store-retries", 0, "Bounded retry attempts for transient store failures")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 8090 // default
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if timeoutStr == "" {
		timeoutStr = os.Getenv("VALIDATE_TIMEOUT")
	}
	if timeoutStr == "" {
		cfg.ValidateTimeout = 5 * time.Second // default
	} else {
		d, err := time.ParseDuration(timeoutStr)
		if err != nil || d <= 0 {
			return Config{}, errors.New("invalid VALIDATE_TIMEOUT, expected a positive duration like 5s")
		}
		cfg.ValidateTimeout = d
	}

	if cfg.StoreRetries == 0 {
		if retriesStr := os.Getenv("STORE_RETRIES"); retriesStr != "" {
			retries, err := strconv.Atoi(retriesStr)
			if err != nil || retries < 1 {
				return Config{}, errors.New("invalid STORE_RETRIES env variable")
			}
			cfg.StoreRetries = retries
		} else {
			cfg.StoreRetries = 3 // default
		}
	}

	return cfg, nil
}
