package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Visibility prefixes partition the key namespace for coarse access control.
const (
	PrefixPublic  = "public"
	PrefixPrivate = "private"
)

// DeriveKey builds the object-storage key for a new upload:
//
//	{public|private}/{userID}/{YYYYMM}/{uuid}-{filename}
//
// The UUID makes every call produce a distinct, non-guessable key even for the
// same user and filename; the year-month segment partitions keys by upload
// time in UTC. The filename keeps only its base segment so a crafted name
// cannot escape the user's namespace.
func DeriveKey(userID uint, filename string, isPublic bool) string {
	prefix := PrefixPrivate
	if isPublic {
		prefix = PrefixPublic
	}

	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}

	partition := time.Now().UTC().Format("200601")
	return fmt.Sprintf("%s/%d/%s/%s-%s", prefix, userID, partition, uuid.NewString(), name)
}

// IsPublicKey reports whether a key lives in the public namespace.
func IsPublicKey(key string) bool {
	return strings.HasPrefix(key, PrefixPublic+"/")
}

// KeyOwnedBy reports whether a key was derived for the given user. Handlers
// use this to reject confirmation calls referencing someone else's upload.
func KeyOwnedBy(key string, userID uint) bool {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 {
		return false
	}
	if parts[0] != PrefixPublic && parts[0] != PrefixPrivate {
		return false
	}
	return parts[1] == fmt.Sprintf("%d", userID)
}
