package user

// AdminGroup is the group claim that grants pool management rights.
const AdminGroup = "Admins"

// Principal is the verified identity of a caller.
type Principal struct {
	UserID string
	Email  string
	Groups []string
}

func (p Principal) IsAdmin() bool {
	for _, g := range p.Groups {
		if g == AdminGroup {
			return true
		}
	}
	return false
}

// UnionGroups merges group claims from two credential payloads, preserving
// first-seen order. Some identity providers put group claims on only one of
// the two token types.
func UnionGroups(primary, secondary []string) []string {
	seen := make(map[string]struct{}, len(primary)+len(secondary))
	out := make([]string, 0, len(primary)+len(secondary))
	for _, g := range append(append([]string(nil), primary...), secondary...) {
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
