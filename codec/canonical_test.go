package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKeyOrdering(t *testing.T) {
	a, err := Canonical(map[string]any{"b": 1, "a": 2, "c": 3})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":3}`, string(a))
}

func TestCanonicalNestedObjects(t *testing.T) {
	v := map[string]any{
		"outer": map[string]any{"z": 1, "a": 2},
		"list":  []any{3, 1, 2},
	}
	out, err := Canonical(v)
	require.NoError(t, err)
	assert.Equal(t, `{"list":[3,1,2],"outer":{"a":2,"z":1}}`, string(out))
}

func TestCanonicalFixedPoint(t *testing.T) {
	in := []byte(`{"b": 1, "a": [1,2,3], "c": "hello world"}`)
	once, err := CanonicalizeJSON(in)
	require.NoError(t, err)
	twice, err := CanonicalizeJSON(once)
	require.NoError(t, err)
	assert.Equal(t, string(once), string(twice))
}

func TestCanonicalFieldOrderIndependence(t *testing.T) {
	a, err := CanonicalizeJSON([]byte(`{"x":1,"y":2}`))
	require.NoError(t, err)
	b, err := CanonicalizeJSON([]byte(`{"y":2,"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBase64URLNoPaddingOnOutput(t *testing.T) {
	enc := Base64URLEncode([]byte("a"))
	assert.NotContains(t, enc, "=")
}

func TestBase64URLRoundTrip(t *testing.T) {
	data := []byte("the quick brown fox")
	enc := Base64URLEncode(data)
	dec, err := Base64URLDecode(enc)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
}

func TestBase64URLDecodeTolerantOfPadding(t *testing.T) {
	dec, err := Base64URLDecode("YQ==")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), dec)
}

func TestBase58RoundTrip(t *testing.T) {
	data := []byte{0x00, 0x01, 0xff, 0x7f, 0x80}
	enc := Base58Encode(data)
	dec, err := Base58Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
}
