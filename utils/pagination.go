package utils

// History listings default to one page of 50 entries; callers may request
// up to 200 per page.
const (
	historyPageDefault = 50
	historyPageMax     = 200
)

// GetPaginationParams resolves optional offset/limit query values into
// concrete pagination bounds. Nil or out-of-range values fall back to the
// defaults above.
func GetPaginationParams(offset *int, limit *int) (int, int) {
	resolvedOffset := 0
	if offset != nil && *offset > 0 {
		resolvedOffset = *offset
	}

	resolvedLimit := historyPageDefault
	if limit != nil && *limit > 0 {
		resolvedLimit = min(*limit, historyPageMax)
	}

	return resolvedOffset, resolvedLimit
}
