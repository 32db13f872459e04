package morph

import "sort"

// Group is a connected component after equivalence resolution.
type Group struct {
	// Label is the dense output label (1 is the largest kept component).
	Label int
	// Root is the canonical provisional label of the component.
	Root int
	// Size is the number of voxels in the component.
	Size int
}

// Equivalence is a union-find forest over provisional labels with a voxel
// count per label. Label 0 is background and never becomes a group.
//
// Unions always adopt the smallest root, so every parent pointer refers to a
// smaller label than its child.
type Equivalence struct {
	parent []int
	count  []int
}

// NewEquivalence returns an empty forest holding only the background label.
func NewEquivalence() *Equivalence {
	return &Equivalence{parent: []int{0}, count: []int{0}}
}

// Len returns the number of provisional labels issued.
func (e *Equivalence) Len() int { return len(e.parent) - 1 }

// New issues a fresh self-rooted label with a count of one.
func (e *Equivalence) New() int {
	label := len(e.parent)
	e.parent = append(e.parent, label)
	e.count = append(e.count, 1)
	return label
}

// Add counts one more voxel for label.
func (e *Equivalence) Add(label int) { e.count[label]++ }

// Count returns the voxels currently attributed to label.
func (e *Equivalence) Count(label int) int { return e.count[label] }

// Find returns the canonical root of label and compresses the path to it.
func (e *Equivalence) Find(label int) int {
	root := label
	for e.parent[root] != root {
		root = e.parent[root]
	}
	for e.parent[label] != root {
		next := e.parent[label]
		e.parent[label] = root
		label = next
	}
	return root
}

// Union merges the classes of labels into the one with the smallest root and
// returns that root.
func (e *Equivalence) Union(labels ...int) int {
	min := -1
	for _, l := range labels {
		if r := e.Find(l); min < 0 || r < min {
			min = r
		}
	}
	for _, l := range labels {
		e.parent[e.Find(l)] = min
	}
	return min
}

// Resolve folds the counts of every non-root label into its root, in
// ascending label order, and returns the remaining self-rooted labels with a
// non-zero count in ascending label order. Group.Label is left unset.
func (e *Equivalence) Resolve() []Group {
	for l := 1; l < len(e.parent); l++ {
		if e.parent[l] == l {
			continue
		}
		root := e.Find(l)
		e.count[root] += e.count[l]
		e.count[l] = 0
	}

	var groups []Group
	for l := 1; l < len(e.parent); l++ {
		if e.parent[l] == l && e.count[l] > 0 {
			groups = append(groups, Group{Root: l, Size: e.count[l]})
		}
	}
	return groups
}

// Rank orders groups by descending size, ties by ascending root, and assigns
// dense labels 1..len(groups).
func Rank(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Size != groups[j].Size {
			return groups[i].Size > groups[j].Size
		}
		return groups[i].Root < groups[j].Root
	})
	for i := range groups {
		groups[i].Label = i + 1
	}
}

// Lookup returns a table mapping every provisional label to the output
// label of its group, or 0 when the group is not in groups.
func (e *Equivalence) Lookup(groups []Group) []int {
	byRoot := make([]int, len(e.parent))
	for _, g := range groups {
		byRoot[g.Root] = g.Label
	}
	lut := make([]int, len(e.parent))
	for l := 1; l < len(e.parent); l++ {
		lut[l] = byRoot[e.Find(l)]
	}
	return lut
}
