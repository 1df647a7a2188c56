// Package linesource materializes folded-stack input lines from the
// places they can come from: stdin, a local file, an HTTP endpoint or
// an object storage bucket (through storageutil). The aggregation core
// only ever sees the resulting []string.
package linesource

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/profilekit/foldconv/internal/storageutil"
)

// FromReader reads r to the end and returns its lines. Compressed
// input is handled the same way storage objects are.
func FromReader(r io.Reader) ([]string, error) {
	return storageutil.ScanLines(r)
}

// FromFile reads a folded file from disk. An empty path or "-" means
// stdin.
func FromFile(path string) ([]string, error) {
	if path == "" || path == "-" {
		return FromReader(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := FromReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

// IsURL reports whether the input argument names a remote source
// rather than a local file.
func IsURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
