// Package hashutil computes the "sha256:<hex>" digests stored in state
// checksums. Unprefixed MD5 hex digests from older state files are still
// understood when comparing.
package hashutil

import (
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Prefix marks the digest algorithm in every stored checksum.
const Prefix = "sha256:"

// CalculateFileChecksum calculates the SHA256 checksum of a file
func CalculateFileChecksum(path string) (string, error) {
	return fileChecksum(path, sha256.New(), Prefix)
}

// FileChecksumLike hashes path with the algorithm that produced expected, so
// a legacy MD5 entry is compared against an MD5 of the file.
func FileChecksumLike(path, expected string) (string, error) {
	if IsLegacy(expected) {
		return fileChecksum(path, md5.New(), "")
	}
	return CalculateFileChecksum(path)
}

func fileChecksum(path string, h hash.Hash, prefix string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%x", prefix, h.Sum(nil)), nil
}

// CalculateReaderChecksum hashes everything read from r.
func CalculateReaderChecksum(r io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%x", Prefix, hash.Sum(nil)), nil
}

// CalculateBytesChecksum hashes an in-memory buffer.
func CalculateBytesChecksum(data []byte) string {
	return fmt.Sprintf("%s%x", Prefix, sha256.Sum256(data))
}

// IsValid reports whether s looks like a checksum this package produced.
func IsValid(s string) bool {
	hexPart, ok := strings.CutPrefix(s, Prefix)
	return ok && len(hexPart) == sha256.Size*2 && isLowerHex(hexPart)
}

// IsLegacy reports whether s is a bare MD5 hex digest.
func IsLegacy(s string) bool {
	return len(s) == md5.Size*2 && isLowerHex(s)
}

func isLowerHex(s string) bool {
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
