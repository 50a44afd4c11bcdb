package entity

import "sort"

// Index is an inverted index from normalized term to the IDs of the
// turns that mention it. It is conversation-local and not safe for
// concurrent use; the owning memory manager serializes access.
type Index struct {
	byTerm map[string][]int64
	byTurn map[int64][]string
}

// NewIndex returns an empty inverted index.
func NewIndex() *Index {
	return &Index{
		byTerm: make(map[string][]int64),
		byTurn: make(map[int64][]string),
	}
}

// Add registers terms for a turn. Re-indexing an already-indexed turn
// is a no-op, so indexing is idempotent.
func (ix *Index) Add(id int64, terms []string) {
	if _, indexed := ix.byTurn[id]; indexed {
		return
	}
	registered := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		registered = append(registered, term)
		ids := ix.byTerm[term]
		pos := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
		if pos < len(ids) && ids[pos] == id {
			continue
		}
		ids = append(ids, 0)
		copy(ids[pos+1:], ids[pos:])
		ids[pos] = id
		ix.byTerm[term] = ids
	}
	ix.byTurn[id] = registered
}

// Remove drops all index entries owned by a turn. Called when the turn
// is evicted from long-term memory.
func (ix *Index) Remove(id int64) {
	terms, indexed := ix.byTurn[id]
	if !indexed {
		return
	}
	for _, term := range terms {
		ids := ix.byTerm[term]
		for i, tid := range ids {
			if tid == id {
				ix.byTerm[term] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(ix.byTerm[term]) == 0 {
			delete(ix.byTerm, term)
		}
	}
	delete(ix.byTurn, id)
}

// Lookup returns the turn IDs registered for a term, ascending.
func (ix *Index) Lookup(term string) []int64 {
	ids := ix.byTerm[term]
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

// Has reports whether a turn has been indexed.
func (ix *Index) Has(id int64) bool {
	_, ok := ix.byTurn[id]
	return ok
}

// Terms returns the number of unique indexed terms.
func (ix *Index) Terms() int {
	return len(ix.byTerm)
}

// TermsFor returns the terms registered for a turn, in registration order.
func (ix *Index) TermsFor(id int64) []string {
	terms := ix.byTurn[id]
	out := make([]string, len(terms))
	copy(out, terms)
	return out
}
