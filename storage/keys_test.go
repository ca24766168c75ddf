package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeyShape(t *testing.T) {
	key := DeriveKey(42, "demo-take3.wav", true)

	parts := strings.SplitN(key, "/", 4)
	require.Len(t, parts, 4)
	assert.Equal(t, "public", parts[0])
	assert.Equal(t, "42", parts[1])
	assert.Equal(t, time.Now().UTC().Format("200601"), parts[2])
	assert.True(t, strings.HasSuffix(parts[3], "-demo-take3.wav"))

	// leading segment before the filename must be a UUID
	uuidPart := strings.TrimSuffix(parts[3], "-demo-take3.wav")
	_, err := uuid.Parse(uuidPart)
	assert.NoError(t, err)
}

func TestDeriveKeyVisibilityPrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(DeriveKey(1, "a.mp3", true), "public/1/"))
	assert.True(t, strings.HasPrefix(DeriveKey(1, "a.mp3", false), "private/1/"))
}

func TestDeriveKeyDistinctPerCall(t *testing.T) {
	a := DeriveKey(7, "same.flac", false)
	b := DeriveKey(7, "same.flac", false)
	assert.NotEqual(t, a, b)

	// same partition and principal segments, different uuid segment
	ap := strings.SplitN(a, "/", 4)
	bp := strings.SplitN(b, "/", 4)
	assert.Equal(t, ap[:3], bp[:3])
	assert.NotEqual(t, ap[3], bp[3])
}

func TestDeriveKeyStripsDirectories(t *testing.T) {
	key := DeriveKey(5, "../../etc/passwd", false)
	assert.NotContains(t, key, "..")
	assert.True(t, strings.HasSuffix(key, "-passwd"))

	key = DeriveKey(5, "C:\\Users\\me\\song.mp3", true)
	assert.True(t, strings.HasSuffix(key, "-song.mp3"))
	assert.NotContains(t, key, "\\")
}

func TestDeriveKeyEmptyFilenameFallback(t *testing.T) {
	assert.True(t, strings.HasSuffix(DeriveKey(5, "", true), "-upload"))
	assert.True(t, strings.HasSuffix(DeriveKey(5, "///", true), "-upload"))
}

func TestIsPublicKey(t *testing.T) {
	assert.True(t, IsPublicKey("public/1/202608/x-a.mp3"))
	assert.False(t, IsPublicKey("private/1/202608/x-a.mp3"))
	assert.False(t, IsPublicKey("publicity/1/202608/x-a.mp3"))
}

func TestKeyOwnedBy(t *testing.T) {
	key := DeriveKey(42, "a.mp3", true)
	assert.True(t, KeyOwnedBy(key, 42))
	assert.False(t, KeyOwnedBy(key, 7))

	assert.False(t, KeyOwnedBy("", 42))
	assert.False(t, KeyOwnedBy("public/42", 42))
	assert.False(t, KeyOwnedBy("attachments/42/202608/x-a.mp3", 42))
}
