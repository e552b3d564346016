// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes SHA-256 content fingerprints of files. All
// provenance records, the publication ledger, and audit checks identify
// file content by these digests: two files with equal digests are
// treated as content-identical regardless of path or mtime.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// HashFile computes the SHA-256 digest of the file at path. The file
// is streamed through the hash function in chunks (via io.Copy) to
// keep memory usage constant regardless of file size.
func HashFile(path string) ([32]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return [32]byte{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return [32]byte{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// HashFileHex computes the SHA-256 digest of the file at path and
// returns it in the canonical 64-character hex encoding used by all
// persisted records.
func HashFileHex(path string) (string, error) {
	digest, err := HashFile(path)
	if err != nil {
		return "", err
	}
	return FormatDigest(digest), nil
}

// FormatDigest returns the hex-encoded string representation of a
// SHA-256 digest.
func FormatDigest(digest [32]byte) string {
	return hex.EncodeToString(digest[:])
}

// ParseDigest parses a hex-encoded SHA-256 digest string into a
// 32-byte array. Returns an error if the string is not a valid
// 64-character hex encoding of 32 bytes.
func ParseDigest(hexString string) ([32]byte, error) {
	var digest [32]byte
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != 32 {
		return digest, fmt.Errorf("digest is %d bytes, want 32", len(decoded))
	}
	copy(digest[:], decoded)
	return digest, nil
}

// FileRecord describes the content identity of one file at a point in
// time: its resolved absolute path, content digest, size, and
// modification time (float epoch seconds, matching the persisted
// record format).
type FileRecord struct {
	Path   string  `yaml:"path"`
	SHA256 string  `yaml:"sha256"`
	Bytes  int64   `yaml:"bytes"`
	MTime  float64 `yaml:"mtime"`
}

// RecordFile resolves path to an absolute path, hashes the file, and
// returns its FileRecord. Fails if the file does not exist or cannot
// be read — callers never get a record for absent content.
func RecordFile(path string) (FileRecord, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return FileRecord{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	if linked, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = linked
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return FileRecord{}, fmt.Errorf("stat %s: %w", resolved, err)
	}

	sum, err := HashFileHex(resolved)
	if err != nil {
		return FileRecord{}, err
	}

	return FileRecord{
		Path:   resolved,
		SHA256: sum,
		Bytes:  info.Size(),
		MTime:  float64(info.ModTime().UnixNano()) / 1e9,
	}, nil
}
