package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	c, ok = ByName("go-json")
	require.True(t, ok)
	assert.Equal(t, "go-json", c.Name())

	_, ok = ByName("gob")
	assert.False(t, ok)
}

func TestGoJSON_InteropWithJSON(t *testing.T) {
	in := map[string]any{"format": "compressed", "max_order": float64(4)}
	data, err := GoJSON{}.Marshal(in)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, JSON{}.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestJSON_RoundTrip(t *testing.T) {
	type header struct {
		Format string  `json:"format"`
		Counts []int64 `json:"counts"`
	}
	in := header{Format: "hashtrie", Counts: []int64{3, 5}}

	data, err := Default.Marshal(in)
	require.NoError(t, err)
	var out header
	require.NoError(t, Default.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	_, err = JSON{}.Marshal(make(chan int))
	assert.Error(t, err)
}
