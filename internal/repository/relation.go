package repository

// Sync builds the full replacement link collection for an owner: one link
// per distinct requested id, in request order. Duplicate ids collapse. An
// empty request yields an empty (non-nil) collection, which removes every
// existing link once the caller has cleared the old rows. Target ids are
// not checked here; a missing target surfaces as *ConstraintError when the
// links are written.
func Sync[J any](ownerID int64, ids []int64, link func(ownerID, targetID int64) J) []J {
	out := make([]J, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, link(ownerID, id))
	}
	return out
}

// IDs is the read side of Sync: it projects links back to target ids.
func IDs[J any](links []J, target func(J) int64) []int64 {
	out := make([]int64, 0, len(links))
	for _, l := range links {
		out = append(out, target(l))
	}
	return out
}
