// Package pagination normalizes limit/offset paging for list queries.
package pagination

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Clamp returns paging values safe to interpolate into a LIMIT/OFFSET
// clause. Out-of-range limits fall back to DefaultLimit so list
// endpoints stay forgiving about caller input.
func Clamp(limit, offset int) (int, int) {
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
