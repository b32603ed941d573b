package cq

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFrameReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, frameMessage, []byte("payload")))

	typ, payload, err := readFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, frameMessage, typ)
	require.Equal(t, []byte("payload"), payload)
}

func TestWriteFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, frameHalfClose, nil))

	typ, payload, err := readFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, frameHalfClose, typ)
	require.Empty(t, payload)
}

func TestPutStringGetStringRoundTrip(t *testing.T) {
	buf := putString(nil, "hello")
	buf = putString(buf, "world")

	s1, rest, err := getString(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", s1)

	s2, rest, err := getString(rest)
	require.NoError(t, err)
	require.Equal(t, "world", s2)
	require.Empty(t, rest)
}

func TestGetStringTruncatedReturnsError(t *testing.T) {
	_, _, err := getString([]byte{0, 0})
	require.Error(t, err)
}

func TestRequestPreambleRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c := &call{w: &buf, codec: DefaultCodec}
	md := Metadata{"k": "v"}
	require.NoError(t, c.writeRequestPreamble("Arithmetic.Sum", "req-1", md, []byte("params")))

	peer := &call{r: bufio.NewReader(&buf), codec: DefaultCodec}
	// writeRequestPreamble also writes the rpcMagic prefix; the real
	// listener consumes it via Peek/Discard before handing off to
	// readRequestPreamble, so skip it here too.
	prefix := make([]byte, len(rpcMagic))
	_, err := io.ReadFull(peer.r, prefix)
	require.NoError(t, err)
	require.Equal(t, rpcMagic, prefix)

	params, err := peer.readRequestPreamble()
	require.NoError(t, err)
	require.Equal(t, []byte("params"), params)
	require.Equal(t, "Arithmetic.Sum", peer.method)
	require.Equal(t, "req-1", peer.requestID)
	require.Equal(t, "v", peer.metadata["k"])
}

func TestStatusFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c := &call{w: &buf}
	ctx := &ServerContext{trailingMetadata: Metadata{"checksum": "42"}}
	status := Status{Code: OK.Code, Message: ""}
	require.NoError(t, c.writeStatus(ctx, status))
	require.Equal(t, status, c.lastStatus)

	peer := &call{r: bufio.NewReader(&buf)}
	gotStatus, gotTrailer, err := peer.readStatus()
	require.NoError(t, err)
	require.Equal(t, status, gotStatus)
	require.Equal(t, "42", gotTrailer["checksum"])
}
