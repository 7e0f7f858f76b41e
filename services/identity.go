package services

import (
	"crypto/md5"
	"encoding/hex"
)

// Identify derives a listing id as the hex MD5 of title followed by link.
// Snapshots written by other tools use the same digest, so this must not
// change.
func Identify(title, link string) string {
	sum := md5.Sum([]byte(title + link))
	return hex.EncodeToString(sum[:])
}
