package dex

// Classes partitions the entries accepted by keep into equivalence classes.
// Two entries share a class when one's id is in the other's group, directly
// or through a chain of groups. It returns the number of classes.
//
// A nil keep accepts every entry.
func (c *Catalog) Classes(keep func(Entry) bool) int {
	uf := newUnionFind()
	var roots []int
	for _, e := range c.entries {
		if keep != nil && !keep(e) {
			continue
		}
		for _, id := range e.EquivalenceGroup {
			uf.union(e.ID, id)
		}
		roots = append(roots, e.ID)
	}

	distinct := make(map[int]struct{}, len(roots))
	for _, id := range roots {
		distinct[uf.find(id)] = struct{}{}
	}
	return len(distinct)
}

// Equivalent reports whether b can stand in for a: b's id is in a's group.
func Equivalent(a, b Entry) bool {
	return EquivalentIDs(a).Contains(b.ID)
}

type unionFind struct {
	parent map[int]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[int]int)}
}

func (u *unionFind) find(x int) int {
	p, ok := u.parent[x]
	if !ok {
		u.parent[x] = x
		return x
	}
	if p == x {
		return x
	}
	root := u.find(p)
	u.parent[x] = root
	return root
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}
