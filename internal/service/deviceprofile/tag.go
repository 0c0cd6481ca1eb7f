package deviceprofile

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Tag derives the opaque entity tag of a profile version. Equal inputs give
// equal tags in every process; any version change gives a different tag.
func Tag(id string, version int) string {
	sum := sha256.Sum256([]byte(id + ":" + strconv.Itoa(version)))
	return hex.EncodeToString(sum[:])[:32]
}

// FormatETag quotes a tag for the ETag header.
func FormatETag(tag string) string {
	return `"` + tag + `"`
}

// ParseETags splits an If-Match or If-None-Match header into opaque tags.
// Weak prefixes and quotes are removed; "*" is returned as is.
func ParseETags(header string) []string {
	var tags []string
	for part := range strings.SplitSeq(header, ",") {
		t := strings.TrimSpace(part)
		t = strings.TrimPrefix(t, "W/")
		t = strings.Trim(t, `"`)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// MatchesNoneMatch reports whether an If-None-Match header matches the
// current representation. Unlike If-Match, "*" matches any existing one.
func MatchesNoneMatch(header, current string) bool {
	for _, t := range ParseETags(header) {
		if t == "*" || t == current {
			return true
		}
	}
	return false
}

// MatchesTag reports whether any tag in header equals current. A wildcard
// never matches: callers must present the tag they read.
func MatchesTag(header, current string) bool {
	for _, t := range ParseETags(header) {
		if t == current {
			return true
		}
	}
	return false
}
