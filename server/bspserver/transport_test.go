package bspserver

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, body string) string {
	t.Helper()
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func TestTransport_RunDispatchesUntilExit(t *testing.T) {
	s := testServer(t)

	initReq := `{"jsonrpc":"2.0","id":1,"method":"build/initialize","params":{"rootUri":"file:///root"}}`
	exitReq := `{"jsonrpc":"2.0","method":"build/exit"}`
	input := frame(t, initReq) + frame(t, exitReq)

	in := bytes.NewBufferString(input)
	var out bytes.Buffer
	transport := NewTransport(s, in, &out)

	require.NoError(t, transport.Run())
	assert.Contains(t, out.String(), "Content-Length:")
	assert.Contains(t, out.String(), "sourceKitOptionsProvider")
}

func TestTransport_RunStopsCleanlyOnEOF(t *testing.T) {
	s := testServer(t)
	in := bytes.NewBufferString("")
	var out bytes.Buffer
	transport := NewTransport(s, in, &out)

	require.NoError(t, transport.Run())
	assert.Empty(t, out.String())
}

func TestTransport_MalformedFrameProducesParseError(t *testing.T) {
	s := testServer(t)
	in := bytes.NewBufferString(frame(t, "not json"))
	var out bytes.Buffer
	transport := NewTransport(s, in, &out)

	require.NoError(t, transport.Run())
	assert.Contains(t, out.String(), "-32700")
}
