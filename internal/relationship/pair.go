// internal/relationship/pair.go

package relationship

// orderPair returns the two user IDs in canonical (ascending) order.
// Connections and pair lookups always use this order, so a pair maps to
// exactly one row no matter which side initiated.
func orderPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
