// Package merkle builds binary hash trees over ordered leaf hashes and
// produces compact inclusion proofs. Trees are ephemeral: they are recomputed
// on demand from the ledger and never persisted as authoritative state.
//
// Determinism guarantee: building twice from the same ordered leaf set always
// yields the same root. The report verifier relies on this.
package merkle

import (
	"errors"

	"github.com/veritas-school/assessment-ledger/pkg/hashutil"
)

var (
	// ErrLeafNotFound is returned when proving membership of a hash that is
	// not among the tree's leaves.
	ErrLeafNotFound = errors.New("merkle: leaf not found in tree")
)

// Tree is a binary Merkle tree. levels[0] holds the leaves; each subsequent
// level is the pairwise fold of the previous one, with an odd trailing node
// duplicated as its own pair.
type Tree struct {
	levels [][]string
}

// Build constructs a tree from ordered leaf hashes (hex encoded).
// An empty leaf set yields a valid tree with no root: callers must treat that
// as "no anchorable history", not as an error.
func Build(leaves []string) (*Tree, error) {
	t := &Tree{}
	if len(leaves) == 0 {
		return t, nil
	}

	level := make([]string, len(leaves))
	copy(level, leaves)
	t.levels = append(t.levels, level)

	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			parent, err := hashutil.HashPair(left, right)
			if err != nil {
				return nil, err
			}
			next = append(next, parent)
		}
		t.levels = append(t.levels, next)
		level = next
	}

	return t, nil
}

// Root returns the root hash, or "" for an empty tree.
func (t *Tree) Root() string {
	if len(t.levels) == 0 {
		return ""
	}
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// LeafCount returns the number of leaves the tree was built from.
func (t *Tree) LeafCount() int {
	if len(t.levels) == 0 {
		return 0
	}
	return len(t.levels[0])
}

// Leaves returns a copy of the ordered leaf hashes.
func (t *Tree) Leaves() []string {
	if len(t.levels) == 0 {
		return nil
	}
	out := make([]string, len(t.levels[0]))
	copy(out, t.levels[0])
	return out
}

// ProofStep is one sibling on the path from a leaf to the root.
// Right reports whether the sibling sits to the right of the running hash.
type ProofStep struct {
	Hash  string `json:"hash"`
	Right bool   `json:"right"`
}

// Prove returns the position-tagged sibling path for the given leaf hash,
// proving its membership without revealing the remaining leaves.
// If the leaf appears more than once, the first occurrence is proven.
func (t *Tree) Prove(leaf string) ([]ProofStep, error) {
	if len(t.levels) == 0 {
		return nil, ErrLeafNotFound
	}

	index := -1
	for i, h := range t.levels[0] {
		if h == leaf {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrLeafNotFound
	}

	proof := make([]ProofStep, 0, len(t.levels)-1)
	for depth := 0; depth < len(t.levels)-1; depth++ {
		level := t.levels[depth]
		var step ProofStep
		if index%2 == 0 {
			// Sibling on the right; an odd trailing node pairs with itself.
			sibling := index
			if index+1 < len(level) {
				sibling = index + 1
			}
			step = ProofStep{Hash: level[sibling], Right: true}
		} else {
			step = ProofStep{Hash: level[index-1], Right: false}
		}
		proof = append(proof, step)
		index /= 2
	}

	return proof, nil
}

// VerifyProof replays the pairing with the supplied siblings and reports
// whether the recomputed root matches expectedRoot.
func VerifyProof(leaf string, proof []ProofStep, expectedRoot string) bool {
	current := leaf
	for _, step := range proof {
		var (
			combined string
			err      error
		)
		if step.Right {
			combined, err = hashutil.HashPair(current, step.Hash)
		} else {
			combined, err = hashutil.HashPair(step.Hash, current)
		}
		if err != nil {
			return false
		}
		current = combined
	}
	return current == expectedRoot
}
