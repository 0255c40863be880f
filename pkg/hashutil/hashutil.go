// Package hashutil provides deterministic content hashing over canonicalized
// data for the assessment ledger. All hashes are SHA3-256, hex encoded.
// SHA3 is used instead of SHA-256 because chain and Merkle construction hash
// concatenated inputs, and SHA3 is not subject to length-extension.
// No dependencies outside golang.org/x/crypto.
package hashutil

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/crypto/sha3"
)

// GenesisHash is the reserved previous-hash sentinel for the first event in a
// student's chain.
const GenesisHash = "GENESIS"

// Hash returns the SHA3-256 hash of the canonical serialization of v.
// Identical logical content always produces an identical hash regardless of
// map construction order.
func Hash(v interface{}) (string, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// DoubleHash returns Hash(Hash(v)). Used for report fingerprints where extra
// diffusion is wanted.
func DoubleHash(v interface{}) (string, error) {
	first, err := Hash(v)
	if err != nil {
		return "", err
	}
	return HashBytes([]byte(first)), nil
}

// HashBytes hashes one or more byte slices as a single message.
func HashBytes(parts ...[]byte) string {
	h := sha3.New256()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashPair combines two hex-encoded hashes into one. The raw digests are
// concatenated left-then-right before hashing, so HashPair(a, b) != HashPair(b, a).
func HashPair(left, right string) (string, error) {
	l, err := hex.DecodeString(left)
	if err != nil {
		return "", fmt.Errorf("hashutil: invalid left hash: %w", err)
	}
	r, err := hex.DecodeString(right)
	if err != nil {
		return "", fmt.Errorf("hashutil: invalid right hash: %w", err)
	}
	return HashBytes(l, r), nil
}

// CanonicalJSON encodes v as JSON with deterministic key ordering.
// Map keys are sorted recursively; the same logical content always yields the
// same bytes. Non-canonical input is a caller bug, not a runtime condition:
// the only errors returned are serialization failures.
func CanonicalJSON(v interface{}) ([]byte, error) {
	stable, err := normalize(v)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(stable); err != nil {
		return nil, fmt.Errorf("hashutil: encode: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// Type markers embedded in the normalized form. Without them an object would
// flatten to the same sequence as an array of its keys and values, and the two
// would hash identically.
const (
	markerObject = "obj"
	markerArray  = "arr"
)

// normalize rewrites maps as type-tagged, sorted key/value sequences and
// arrays as type-tagged element sequences, so that encoding is
// order-independent and an object can never canonicalize to the same bytes as
// an array. Structs and other values are round-tripped through JSON first so
// their field tags apply.
func normalize(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]interface{}, 0, len(keys)*2+1)
		out = append(out, markerObject)
		for _, k := range keys {
			nv, err := normalize(val[k])
			if err != nil {
				return nil, err
			}
			out = append(out, k, nv)
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, 0, len(val)+1)
		out = append(out, markerArray)
		for _, item := range val {
			nv, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out = append(out, nv)
		}
		return out, nil
	case json.Number:
		return val.String(), nil
	case string, float64, bool, nil:
		return val, nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("hashutil: normalize: %w", err)
		}
		var decoded interface{}
		if err := json.Unmarshal(b, &decoded); err != nil {
			return nil, fmt.Errorf("hashutil: normalize: %w", err)
		}
		return normalize(decoded)
	}
}
