// FILE: env.go
// Package main – Environment helpers.
//
// This file provides:
//   1) Small helpers to read environment variables with sane defaults
//      (strings, ints, floats).
//   2) loadDotEnv, which hydrates the process env from a .env file without
//      overriding variables that are already set.
//
// Notes:
//   • No `export $(cat .env ...)` is ever required.
//   • BIAS_ENV_FILE points at a different file; the default is ./.env.

package main

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// --------- Env helpers (used across files) ---------

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// --------- .env loader ---------

// loadDotEnv reads the .env file (BIAS_ENV_FILE or ./.env). A missing file
// is not an error; the process env is used as-is. It returns the path that
// was loaded, or "" when none was found.
func loadDotEnv() (string, error) {
	path := getEnv("BIAS_ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return path, nil
}
