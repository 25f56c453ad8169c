// pkg/internal/hashutil/checksum_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: temp dirs
// PURPOSE: Verify checksum format and file/bytes agreement

package hashutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/limistah/heimdal/pkg/internal/hashutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vimrc")
	require.NoError(t, os.WriteFile(path, []byte("set nocompatible\n"), 0644))

	sum, err := hashutil.CalculateFileChecksum(path)
	require.NoError(t, err)

	assert.Equal(t, hashutil.CalculateBytesChecksum([]byte("set nocompatible\n")), sum)
	assert.True(t, hashutil.IsValid(sum))
}

func TestCalculateFileChecksumMissing(t *testing.T) {
	_, err := hashutil.CalculateFileChecksum(filepath.Join(t.TempDir(), "absent"))
	assert.True(t, os.IsNotExist(err))
}

func TestCalculateBytesChecksumKnownValue(t *testing.T) {
	assert.Equal(t,
		"sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		hashutil.CalculateBytesChecksum(nil))
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", true},
		{"sha256:abc", false},
		{"md5:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", false},
		{"sha256:E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, hashutil.IsValid(tt.in), tt.in)
	}
}

func TestFileChecksumLike(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greeting")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	tests := []struct {
		name     string
		expected string
		want     string
	}{
		{"legacy md5 entry", "5d41402abc4b2a76b9719d911017c592", "5d41402abc4b2a76b9719d911017c592"},
		{"legacy md5 entry for other content", "098f6bcd4621d373cade4e832627b4f6", "5d41402abc4b2a76b9719d911017c592"},
		{"sha256 entry", hashutil.CalculateBytesChecksum(nil), hashutil.CalculateBytesChecksum([]byte("hello"))},
		{"unknown format falls back to sha256", "", hashutil.CalculateBytesChecksum([]byte("hello"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hashutil.FileChecksumLike(path, tt.expected)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsLegacy(t *testing.T) {
	assert.True(t, hashutil.IsLegacy("5d41402abc4b2a76b9719d911017c592"))
	assert.False(t, hashutil.IsLegacy("5D41402ABC4B2A76B9719D911017C592"))
	assert.False(t, hashutil.IsLegacy(hashutil.CalculateBytesChecksum(nil)))
	assert.False(t, hashutil.IsLegacy(""))
}
