// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFromPath_File(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{name: "plain value", content: "syt_token", expected: "syt_token"},
		{name: "trailing newline", content: "syt_token\n", expected: "syt_token"},
		{name: "surrounding whitespace", content: "  syt_token \n", expected: "syt_token"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(tempDir, test.name)
			if err := os.WriteFile(path, []byte(test.content), 0600); err != nil {
				t.Fatalf("writing test file: %v", err)
			}

			result, err := ReadFromPath(path)
			if err != nil {
				t.Fatalf("ReadFromPath() error: %v", err)
			}
			defer result.Close()
			if result.String() != test.expected {
				t.Errorf("ReadFromPath() = %q, want %q", result.String(), test.expected)
			}
		})
	}
}

func TestReadFromPath_Errors(t *testing.T) {
	tempDir := t.TempDir()

	if _, err := ReadFromPath(filepath.Join(tempDir, "missing")); err == nil {
		t.Error("ReadFromPath() with nonexistent file should return error")
	}

	for name, content := range map[string]string{"empty": "", "whitespace": "   \n\t\n"} {
		path := filepath.Join(tempDir, name)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("writing test file: %v", err)
		}
		if _, err := ReadFromPath(path); err == nil {
			t.Errorf("ReadFromPath() with %s file should return error", name)
		}
	}
}

func TestReadLine(t *testing.T) {
	buffer, err := readLine(strings.NewReader("  correct horse  \nsecond line\n"))
	if err != nil {
		t.Fatalf("readLine() error: %v", err)
	}
	defer buffer.Close()
	if buffer.String() != "correct horse" {
		t.Errorf("readLine() = %q, want %q", buffer.String(), "correct horse")
	}

	if _, err := readLine(strings.NewReader("")); err == nil {
		t.Error("readLine() on empty input should return error")
	}
}
