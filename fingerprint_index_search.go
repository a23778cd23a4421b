package molprint

import (
	"cmp"
	"slices"

	"github.com/cockroachdb/errors"
)

// SearchResult is one hit of a fingerprint search.
type SearchResult struct {
	// Query is the position of the query in WithQuery or WithNode order.
	Query int
	ID    uint32
	Score float64
}

// FingerprintSearch is a search builder for FingerprintIndex.
type FingerprintSearch struct {
	index     *FingerprintIndex
	queries   []*BitVect
	nodeIDs   []uint32
	k         int
	threshold float64
}

// WithQuery sets the query fingerprint(s).
func (s *FingerprintSearch) WithQuery(queries ...*BitVect) *FingerprintSearch {
	s.queries = queries
	s.nodeIDs = nil
	return s
}

// WithNode searches from stored fingerprints instead of explicit queries.
func (s *FingerprintSearch) WithNode(ids ...uint32) *FingerprintSearch {
	s.nodeIDs = ids
	s.queries = nil
	return s
}

// WithK sets the number of results per query. k <= 0 returns every match.
func (s *FingerprintSearch) WithK(k int) *FingerprintSearch {
	s.k = k
	return s
}

// WithThreshold drops results whose similarity is below t.
func (s *FingerprintSearch) WithThreshold(t float64) *FingerprintSearch {
	s.threshold = t
	return s
}

// Execute runs the search. Results are grouped by query in query order; within a
// query they are sorted by decreasing score, ties by increasing id.
func (s *FingerprintSearch) Execute() ([]SearchResult, error) {
	if len(s.queries) == 0 && len(s.nodeIDs) == 0 {
		return nil, errors.New("must specify either queries or node IDs")
	}

	s.index.mu.RLock()
	defer s.index.mu.RUnlock()

	queries := s.queries
	if len(s.nodeIDs) > 0 {
		queries = make([]*BitVect, 0, len(s.nodeIDs))
		for _, id := range s.nodeIDs {
			p, ok := s.index.pos[id]
			if !ok || s.index.deleted.Contains(id) {
				return nil, errors.Newf("node ID %d not found in index", id)
			}
			queries = append(queries, s.index.rows[p])
		}
	}

	var all []SearchResult
	for qi, q := range queries {
		if q == nil {
			return nil, errors.Wrapf(ErrInvalidMolecule, "query %d is nil", qi)
		}
		if q.Len() != s.index.width {
			return nil, errors.Wrapf(ErrDimensionMismatch, "query %d: expected width %d, got %d", qi, s.index.width, q.Len())
		}
		all = append(all, s.searchOne(qi, q)...)
	}
	return all, nil
}

// searchOne scores q against every live row. Callers hold the read lock.
func (s *FingerprintSearch) searchOne(qi int, q *BitVect) []SearchResult {
	idx := s.index
	results := make([]SearchResult, 0, len(idx.rows))
	for i, row := range idx.rows {
		id := idx.ids[i]
		if idx.deleted.Contains(id) {
			continue
		}
		score := idx.sim.Calculate(q, row)
		if score < s.threshold {
			continue
		}
		results = append(results, SearchResult{Query: qi, ID: id, Score: score})
	}
	slices.SortFunc(results, func(a, b SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if s.k > 0 && len(results) > s.k {
		results = results[:s.k]
	}
	return results
}
