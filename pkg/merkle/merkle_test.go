package merkle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-school/assessment-ledger/pkg/hashutil"
)

func testLeaves(n int) []string {
	leaves := make([]string, n)
	for i := range leaves {
		leaves[i] = hashutil.HashBytes([]byte(fmt.Sprintf("leaf-%d", i)))
	}
	return leaves
}

func TestBuild_Empty(t *testing.T) {
	tree, err := Build(nil)
	require.NoError(t, err)

	assert.Equal(t, "", tree.Root())
	assert.Equal(t, 0, tree.LeafCount())
	assert.Nil(t, tree.Leaves())
}

func TestBuild_SingleLeaf(t *testing.T) {
	leaves := testLeaves(1)
	tree, err := Build(leaves)
	require.NoError(t, err)

	assert.Equal(t, leaves[0], tree.Root())
	assert.Equal(t, 1, tree.LeafCount())
}

func TestBuild_TwoLeaves(t *testing.T) {
	leaves := testLeaves(2)
	tree, err := Build(leaves)
	require.NoError(t, err)

	expected, err := hashutil.HashPair(leaves[0], leaves[1])
	require.NoError(t, err)
	assert.Equal(t, expected, tree.Root())
}

func TestBuild_OddLeafDuplicated(t *testing.T) {
	leaves := testLeaves(3)
	tree, err := Build(leaves)
	require.NoError(t, err)

	left, err := hashutil.HashPair(leaves[0], leaves[1])
	require.NoError(t, err)
	right, err := hashutil.HashPair(leaves[2], leaves[2])
	require.NoError(t, err)
	expected, err := hashutil.HashPair(left, right)
	require.NoError(t, err)

	assert.Equal(t, expected, tree.Root())
}

func TestBuild_Deterministic(t *testing.T) {
	leaves := testLeaves(7)

	t1, err := Build(leaves)
	require.NoError(t, err)
	t2, err := Build(leaves)
	require.NoError(t, err)

	assert.Equal(t, t1.Root(), t2.Root())
}

func TestBuild_OrderSensitive(t *testing.T) {
	leaves := testLeaves(4)
	swapped := []string{leaves[1], leaves[0], leaves[2], leaves[3]}

	t1, err := Build(leaves)
	require.NoError(t, err)
	t2, err := Build(swapped)
	require.NoError(t, err)

	assert.NotEqual(t, t1.Root(), t2.Root())
}

func TestBuild_DoesNotAliasInput(t *testing.T) {
	leaves := testLeaves(2)
	tree, err := Build(leaves)
	require.NoError(t, err)

	root := tree.Root()
	leaves[0] = hashutil.HashBytes([]byte("mutated"))

	assert.Equal(t, root, tree.Root())
}

func TestProve_EveryLeaf(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 13} {
		leaves := testLeaves(n)
		tree, err := Build(leaves)
		require.NoError(t, err)

		for _, leaf := range leaves {
			proof, err := tree.Prove(leaf)
			require.NoError(t, err, "n=%d leaf=%s", n, leaf)
			assert.True(t, VerifyProof(leaf, proof, tree.Root()), "n=%d leaf=%s", n, leaf)
		}
	}
}

func TestProve_UnknownLeaf(t *testing.T) {
	tree, err := Build(testLeaves(4))
	require.NoError(t, err)

	_, err = tree.Prove(hashutil.HashBytes([]byte("stranger")))
	assert.ErrorIs(t, err, ErrLeafNotFound)
}

func TestProve_EmptyTree(t *testing.T) {
	tree, err := Build(nil)
	require.NoError(t, err)

	_, err = tree.Prove(hashutil.HashBytes([]byte("anything")))
	assert.ErrorIs(t, err, ErrLeafNotFound)
}

func TestVerifyProof_WrongRoot(t *testing.T) {
	leaves := testLeaves(4)
	tree, err := Build(leaves)
	require.NoError(t, err)

	proof, err := tree.Prove(leaves[2])
	require.NoError(t, err)

	assert.False(t, VerifyProof(leaves[2], proof, hashutil.HashBytes([]byte("forged"))))
}

func TestVerifyProof_WrongLeaf(t *testing.T) {
	leaves := testLeaves(4)
	tree, err := Build(leaves)
	require.NoError(t, err)

	proof, err := tree.Prove(leaves[2])
	require.NoError(t, err)

	assert.False(t, VerifyProof(leaves[3], proof, tree.Root()))
}
