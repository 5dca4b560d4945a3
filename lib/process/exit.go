// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Fatal reports err on stderr as "<binary>: error: <err>" and exits.
// The exit code is 1 unless err (or an error it wraps) has an
// ExitCode() int method.
func Fatal(err error) {
	os.Exit(report(os.Stderr, filepath.Base(os.Args[0]), err))
}

func report(output io.Writer, binary string, err error) int {
	fmt.Fprintf(output, "%s: error: %v\n", binary, err)
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}
