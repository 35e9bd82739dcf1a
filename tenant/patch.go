package tenant

type patchOp int

const (
	patchUpsert patchOp = iota
	patchRemove
)

// applyTenantPatch is the single reducer every mutation path goes through,
// so the optimistic-patch and remove code paths cannot diverge. Upsert
// replaces a cached copy by id or appends when absent; remove drops it.
func applyTenantPatch(list []*Tenant, op patchOp, t *Tenant, id string) []*Tenant {
	switch op {
	case patchUpsert:
		for i, cached := range list {
			if cached.ID == id {
				patched := make([]*Tenant, len(list))
				copy(patched, list)
				patched[i] = t
				return patched
			}
		}
		return append(append([]*Tenant{}, list...), t)
	case patchRemove:
		patched := make([]*Tenant, 0, len(list))
		for _, cached := range list {
			if cached.ID != id {
				patched = append(patched, cached)
			}
		}
		return patched
	}
	return list
}
