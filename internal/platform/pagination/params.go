package pagination

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Params embeds into Huma input structs for offset pagination. Both values
// are strings so that garbage input is clamped instead of rejected.
type Params struct {
	Limit  string `query:"limit"  doc:"Maximum items per page; clamped to the configured range"`
	Offset string `query:"offset" doc:"Number of items to skip; negative values are treated as zero"`
}

// Page is a resolved, always-valid window.
type Page struct {
	Limit  int
	Offset int
}

// Policy holds the configured page sizes.
type Policy struct {
	Default int
	Max     int
}

// MaxOffset bounds resolved offsets so offset arithmetic cannot overflow.
const MaxOffset = math.MaxInt32

// DefaultPolicy matches the service defaults.
var DefaultPolicy = Policy{Default: 50, Max: 100}

// Resolve clamps p into a Page. A missing or non-numeric limit falls back to
// the default; values below one become one and values above Max become Max.
// A missing, non-numeric or negative offset becomes zero, and offsets above
// MaxOffset become MaxOffset.
func (pol Policy) Resolve(p Params) Page {
	maxSize := pol.Max
	if maxSize < 1 {
		maxSize = DefaultPolicy.Max
	}
	def := pol.Default
	if def < 1 || def > maxSize {
		def = min(DefaultPolicy.Default, maxSize)
	}

	limit := def
	if n, ok := parseInt(p.Limit); ok {
		limit = max(1, min(n, maxSize))
	}
	offset := 0
	if n, ok := parseInt(p.Offset); ok && n > 0 {
		offset = min(n, MaxOffset)
	}
	return Page{Limit: limit, Offset: offset}
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	switch {
	case err == nil:
		return n, true
	case errors.Is(err, strconv.ErrRange):
		// Atoi saturates out of range input, which still clamps correctly.
		return n, true
	default:
		return 0, false
	}
}
