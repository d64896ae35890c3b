package proximity

import "slices"

// SortProximities orders stops for the worklist: non-skipped before skipped,
// nearest first within each group, unknown distances last in their group.
// Ties keep their input order. The input slice is not modified.
func SortProximities(list []StoreProximity) []StoreProximity {
	return SortByDistance(list,
		func(p StoreProximity) (float64, bool) {
			if p.DistanceMeters == nil {
				return 0, false
			}
			return *p.DistanceMeters, true
		},
		func(p StoreProximity) bool { return p.IsSkipped },
	)
}

// SortByDistance is the ordering policy for any item that carries a
// distance and a skipped flag.
func SortByDistance[T any](items []T, distance func(T) (float64, bool), skipped func(T) bool) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		as, bs := skipped(a), skipped(b)
		if as != bs {
			if as {
				return 1
			}
			return -1
		}
		ad, aok := distance(a)
		bd, bok := distance(b)
		switch {
		case aok != bok:
			if aok {
				return -1
			}
			return 1
		case !aok:
			return 0
		case ad < bd:
			return -1
		case ad > bd:
			return 1
		default:
			return 0
		}
	})
	return out
}
