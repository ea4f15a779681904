package entities

// Table counts surface forms of one category. Counts are commutative;
// Entries additionally remembers first-seen order for stable tie-breaking.
type Table struct {
	counts map[string]int64
	order  []string
}

// Entry is one row of a table
type Entry struct {
	Surface string
	Count   int64
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{counts: make(map[string]int64)}
}

// Add increments surface by n
func (t *Table) Add(surface string, n int64) {
	if _, ok := t.counts[surface]; !ok {
		t.order = append(t.order, surface)
	}
	t.counts[surface] += n
}

// Count returns the count of surface
func (t *Table) Count(surface string) int64 {
	return t.counts[surface]
}

// Len returns the number of distinct surfaces
func (t *Table) Len() int {
	return len(t.counts)
}

// Total returns the sum of all counts
func (t *Table) Total() int64 {
	var total int64
	for _, c := range t.counts {
		total += c
	}
	return total
}

// Entries returns all rows in first-seen order
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, s := range t.order {
		out = append(out, Entry{Surface: s, Count: t.counts[s]})
	}
	return out
}

// Merge adds every count of other; surfaces new to t are appended in
// other's first-seen order.
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	for _, s := range other.order {
		t.Add(s, other.counts[s])
	}
}

// Equal reports whether both tables hold the same counts, ignoring order
func (t *Table) Equal(other *Table) bool {
	if len(t.counts) != len(other.counts) {
		return false
	}
	for s, c := range t.counts {
		if other.counts[s] != c {
			return false
		}
	}
	return true
}

// Tables holds one table per category
type Tables map[Category]*Table

// NewTables creates empty tables for every category
func NewTables() Tables {
	ts := make(Tables, len(Categories()))
	for _, c := range Categories() {
		ts[c] = NewTable()
	}
	return ts
}

// Merge merges other into ts category by category
func (ts Tables) Merge(other Tables) {
	for c, t := range other {
		if ts[c] == nil {
			ts[c] = NewTable()
		}
		ts[c].Merge(t)
	}
}

// Equal reports whether every category holds the same counts
func (ts Tables) Equal(other Tables) bool {
	for _, c := range Categories() {
		a, b := ts[c], other[c]
		if a == nil {
			a = NewTable()
		}
		if b == nil {
			b = NewTable()
		}
		if !a.Equal(b) {
			return false
		}
	}
	return true
}
