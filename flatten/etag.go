package flatten

import (
	"encoding/hex"
	"strings"

	"lukechampine.com/blake3"
)

// ETag returns a strong entity tag for payload: the first 16 bytes of its
// BLAKE3 digest, hex encoded and quoted.
func ETag(payload []byte) string {
	sum := blake3.Sum256(payload)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// etagMatch reports whether an If-None-Match header value matches tag.
func etagMatch(header, tag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == tag {
			return true
		}
	}
	return false
}
