package tree

import (
	"github.com/sahilm/fuzzy"

	"github.com/johnwards/devicetree/internal/domain"
)

// Match is one fuzzy search hit.
type Match struct {
	Node           domain.TreeNode `json:"node"`
	Score          int             `json:"score"`
	MatchedIndexes []int           `json:"matchedIndexes"`
}

type labels []domain.TreeNode

func (l labels) String(i int) string { return l[i].Label }
func (l labels) Len() int            { return len(l) }

// Search ranks visible nodes by how well their label fuzzy-matches query,
// best first.
func (t *Tree) Search(query string) []Match {
	nodes := labels(t.Nodes())
	found := fuzzy.FindFrom(query, nodes)
	out := make([]Match, len(found))
	for i, m := range found {
		out[i] = Match{
			Node:           nodes[m.Index],
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		}
	}
	return out
}
