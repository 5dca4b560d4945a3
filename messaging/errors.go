// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"
	"fmt"
)

// MatrixError is a non-2xx response whose body carried an errcode.
// Match on it with IsMatrixError or errors.As.
type MatrixError struct {
	Code       string `json:"errcode"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
}

func (e *MatrixError) Error() string {
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Common Matrix error codes.
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeMissingToken  = "M_MISSING_TOKEN"
	ErrCodeNotFound      = "M_NOT_FOUND"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeUnrecognized  = "M_UNRECOGNIZED"
	ErrCodeUnknown       = "M_UNKNOWN"
	ErrCodeInvalidParam  = "M_INVALID_PARAM"
	ErrCodeMissingParam  = "M_MISSING_PARAM"
	ErrCodeNotJSON       = "M_NOT_JSON"
	ErrCodeBadJSON       = "M_BAD_JSON"
)

// IsMatrixError checks whether err is a *MatrixError with the given error code.
func IsMatrixError(err error, code string) bool {
	var matrixErr *MatrixError
	if errors.As(err, &matrixErr) {
		return matrixErr.Code == code
	}
	return false
}

// DecodeError reports a sync response that does not match the expected
// schema. Path locates the offending fragment in the response
// ("rooms.join[!abc:example.org].timeline.events[2]"). Variant and
// Field are set when a recognized event or message variant is missing
// a required field or has one of the wrong shape.
type DecodeError struct {
	Path    string
	Variant string
	Field   string
	Err     error
}

func (e *DecodeError) Error() string {
	location := e.Path
	if location == "" {
		location = "<root>"
	}
	switch {
	case e.Variant != "" && e.Field != "":
		return fmt.Sprintf("messaging: decoding %s: %s.%s: %v", location, e.Variant, e.Field, e.Err)
	case e.Variant != "":
		return fmt.Sprintf("messaging: decoding %s: %s: %v", location, e.Variant, e.Err)
	default:
		return fmt.Sprintf("messaging: decoding %s: %v", location, e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	// errMissingField is the Err of a DecodeError for an absent
	// required field.
	errMissingField = errors.New("required field missing")

	// errWrongShape is the Err of a DecodeError for a field present
	// with the wrong JSON type.
	errWrongShape = errors.New("field has the wrong type")
)

// IsMissingField reports whether err is a DecodeError for an absent
// required field.
func IsMissingField(err error) bool {
	return errors.Is(err, errMissingField)
}

// ConfigError reports an incomplete or contradictory connection
// configuration, detected before any request is made.
type ConfigError struct {
	// Field names the offending setting ("homeserver_url", "password").
	Field string
	// Problem describes what is wrong with it.
	Problem string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("messaging: invalid configuration: %s: %s", e.Field, e.Problem)
}
