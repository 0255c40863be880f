package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_Deterministic(t *testing.T) {
	v := map[string]interface{}{
		"eventId": "abc",
		"payload": map[string]interface{}{"score": 80.0, "competency": "critical-thinking"},
	}

	h1, err := Hash(v)
	require.NoError(t, err)
	h2, err := Hash(v)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // hex-encoded SHA3-256
}

func TestHash_MapOrderIndependent(t *testing.T) {
	a := map[string]interface{}{"x": 1.0, "y": "two", "z": true}
	b := map[string]interface{}{"z": true, "y": "two", "x": 1.0}

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
}

func TestHash_DifferentContentDiffers(t *testing.T) {
	h1, err := Hash(map[string]interface{}{"score": 80.0})
	require.NoError(t, err)
	h2, err := Hash(map[string]interface{}{"score": 81.0})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestHash_NestedMapsNormalized(t *testing.T) {
	a := map[string]interface{}{
		"outer": map[string]interface{}{"b": 2.0, "a": 1.0},
	}
	b := map[string]interface{}{
		"outer": map[string]interface{}{"a": 1.0, "b": 2.0},
	}

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
}

func TestDoubleHash(t *testing.T) {
	v := map[string]interface{}{"merkleRoot": "deadbeef"}

	single, err := Hash(v)
	require.NoError(t, err)
	double, err := DoubleHash(v)
	require.NoError(t, err)

	assert.NotEqual(t, single, double)
	assert.Equal(t, HashBytes([]byte(single)), double)
}

func TestHashPair_OrderMatters(t *testing.T) {
	left := HashBytes([]byte("left"))
	right := HashBytes([]byte("right"))

	lr, err := HashPair(left, right)
	require.NoError(t, err)
	rl, err := HashPair(right, left)
	require.NoError(t, err)

	assert.NotEqual(t, lr, rl)
}

func TestHashPair_InvalidHex(t *testing.T) {
	valid := HashBytes([]byte("x"))

	_, err := HashPair("not-hex", valid)
	assert.Error(t, err)

	_, err = HashPair(valid, "not-hex")
	assert.Error(t, err)
}

func TestHash_ObjectAndArrayDiffer(t *testing.T) {
	// An object must never canonicalize to the same bytes as an array of its
	// flattened keys and values.
	object := map[string]interface{}{"a": "b"}
	array := []interface{}{"a", "b"}

	ho, err := Hash(object)
	require.NoError(t, err)
	ha, err := Hash(array)
	require.NoError(t, err)

	assert.NotEqual(t, ho, ha)

	nested, err := Hash(map[string]interface{}{"outer": object})
	require.NoError(t, err)
	flattened, err := Hash(map[string]interface{}{"outer": array})
	require.NoError(t, err)

	assert.NotEqual(t, nested, flattened)
}

func TestCanonicalJSON_StableBytes(t *testing.T) {
	v := map[string]interface{}{"b": []interface{}{1.0, 2.0}, "a": "value"}

	b1, err := CanonicalJSON(v)
	require.NoError(t, err)
	b2, err := CanonicalJSON(v)
	require.NoError(t, err)

	assert.Equal(t, b1, b2)
}

func TestGenesisHash(t *testing.T) {
	assert.Equal(t, "GENESIS", GenesisHash)
}
