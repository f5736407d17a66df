package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dice/internal/dice"
)

func TestCodec_Format(t *testing.T) {
	data, err := dice.Codec{}.Marshal(dice.Die{Name: "d6", Faces: 6, Histogram: []int{0, 0, 2, 0, 1, 0}})
	require.NoError(t, err)
	assert.Equal(t, "name: d6\nfaces: 6\nthrows: [0, 0, 2, 0, 1, 0]\n", string(data))
}

func TestCodec_UnmarshalBlockSequence(t *testing.T) {
	d, err := dice.Codec{}.Unmarshal([]byte("name: fudge\nfaces: 3\nthrows:\n  - 4\n  - 0\n  - 1\n"))
	require.NoError(t, err)
	assert.Equal(t, dice.Die{Name: "fudge", Faces: 3, Histogram: []int{4, 0, 1}}, d)
}

func TestCodec_RejectsInvalidRecords(t *testing.T) {
	for name, input := range map[string]string{
		"not yaml":        "name: [",
		"missing throws":  "name: d6\nfaces: 6\n",
		"length mismatch": "name: d6\nfaces: 2\nthrows: [1]\n",
		"negative count":  "name: d6\nfaces: 2\nthrows: [1, -1]\n",
		"missing name":    "faces: 1\nthrows: [0]\n",
		"non-integer":     "name: d6\nfaces: six\nthrows: []\n",
	} {
		_, err := dice.Codec{}.Unmarshal([]byte(input))
		assert.Error(t, err, name)
	}
}

func TestCodec_MarshalRejectsInvalidDie(t *testing.T) {
	_, err := dice.Codec{}.Marshal(dice.Die{Name: "d2", Faces: 2, Histogram: []int{1}})
	assert.Error(t, err)
}

// TestCodec_RoundTrip_Property verifies decode(encode(d)) == d and
// encode(decode(encode(d))) == encode(d) for any valid die.
func TestCodec_RoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := drawDie(rt)
		codec := dice.Codec{}

		data, err := codec.Marshal(d)
		require.NoError(rt, err)
		got, err := codec.Unmarshal(data)
		require.NoError(rt, err)
		assert.Equal(rt, d, got)

		again, err := codec.Marshal(got)
		require.NoError(rt, err)
		assert.Equal(rt, string(data), string(again))
	})
}

// TestCodec_AnyName_Property verifies that any name New accepts survives a round trip and
// that Marshal refuses every name New rejects.
func TestCodec_AnyName_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		name := rapid.String().Draw(rt, "name")
		d := dice.Die{Name: name, Faces: 2, Histogram: []int{1, 0}}
		codec := dice.Codec{}

		data, err := codec.Marshal(d)
		if dice.ValidateName(name) != nil {
			assert.ErrorIs(rt, err, dice.ErrInvalidName)
			return
		}
		require.NoError(rt, err)
		got, err := codec.Unmarshal(data)
		require.NoError(rt, err)
		assert.Equal(rt, d, got)
	})
}

func TestCodec_RoundTripsAwkwardNames(t *testing.T) {
	for _, name := range []string{"~", "null", "true", "0x1f", "- a", "a: b", "#1", " padded ", "'q'", "\"dq\"", "&anchor", "*ref", "!tag", "%x"} {
		d := dice.Die{Name: name, Faces: 1, Histogram: []int{3}}
		data, err := dice.Codec{}.Marshal(d)
		require.NoError(t, err, "name %q", name)
		got, err := dice.Codec{}.Unmarshal(data)
		require.NoError(t, err, "name %q", name)
		assert.Equal(t, d, got)
	}
}
