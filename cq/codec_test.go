package cq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type codecFixture struct {
	Name  string
	Count int
}

func TestGobCodecRoundTrip(t *testing.T) {
	codec := GobCodec{}
	require.Equal(t, "gob", codec.Name())

	in := &codecFixture{Name: "widget", Count: 3}
	data, err := codec.Marshal(in)
	require.NoError(t, err)

	var out codecFixture
	require.NoError(t, codec.Unmarshal(data, &out))
	require.Equal(t, *in, out)
}

func TestDefaultCodecIsGob(t *testing.T) {
	require.Equal(t, "gob", DefaultCodec.Name())
}
