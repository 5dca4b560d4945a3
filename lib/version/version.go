// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"io"
	"os"
	"runtime"
)

// Set with -ldflags -X at build time.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
)

// Info returns "version (commit[-dirty], build time)".
func Info() string {
	commit := GitCommit
	if GitDirty == "true" {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, BuildTime)
}

// Full is Info plus the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s", Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent is the User-Agent header sent to the homeserver, e.g.
// "matrixbot/0.1.0 (3f2a9c1)".
func UserAgent() string {
	if GitCommit == "unknown" {
		return "matrixbot/" + Version
	}
	return "matrixbot/" + Version + " (" + GitCommit + ")"
}

// Print writes the --version output for binary to stdout.
func Print(binary string) {
	fprint(os.Stdout, binary)
}

func fprint(output io.Writer, binary string) {
	fmt.Fprintf(output, "%s %s\n", binary, Full())
}
