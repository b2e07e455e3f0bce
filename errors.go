// FILE: errors.go
// Package main – Fatal error kinds.
//
// Only three conditions abort a run: the input file is missing, the schema
// has no usable Close column, or the parameters are invalid. Everything else
// is a row-level gap and travels through the pipeline as NaN.

package main

import (
	"errors"
	"fmt"
)

var (
	ErrInputNotFound = errors.New("input not found")
	ErrSchema        = errors.New("schema error")
	ErrConfig        = errors.New("config error")
)

// SchemaError reports why the input could not be normalized.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string { return "schema: " + e.Reason }

// Is lets errors.Is(err, ErrSchema) match any SchemaError.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ConfigError names the offending parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }
