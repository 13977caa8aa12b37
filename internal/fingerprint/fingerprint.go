// Package fingerprint computes content fingerprints for change detection.
//
// The fingerprint is a SHA-256 digest of raw bytes, hex encoded. It is a
// deterministic function of content only: identical bytes always produce the
// identical fingerprint regardless of file path, name, or platform.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Bytes returns the lowercase hex SHA-256 digest of b.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Reader returns the lowercase hex SHA-256 digest of everything read from r.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File returns the lowercase hex SHA-256 digest of the file at path.
// The file is streamed, not loaded into memory.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	return Reader(f)
}
