package bspserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/sean7218/bazel-sourcekit-bsp/server/util/status"
)

// Transport frames BSP messages over stdio using LSP-style Content-Length
// headers and drives Server.Handle for each decoded message.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	writeMu sync.Mutex

	server *Server
}

// NewTransport wires a Server to the given input/output streams.
func NewTransport(server *Server, in io.Reader, out io.Writer) *Transport {
	return &Transport{reader: bufio.NewReader(in), writer: out, server: server}
}

// Run reads frames until EOF or build/exit, dispatching each to the server
// and writing back any response. Notifications produced asynchronously by
// the server (via the send callback passed to Handle) are interleaved onto
// the same writer, guarded by writeMu so frames never interleave mid-write.
func (t *Transport) Run() error {
	for {
		body, err := readFrame(t.reader)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			resp := errorResponse(nil, status.JSONRPCErrorf(status.RPCParseError, "failed to parse message: %s", err))
			if writeErr := t.writeFrame(resp); writeErr != nil {
				return writeErr
			}
			continue
		}

		resp := t.server.Handle(req, t.sendNotification)
		if resp != nil {
			if err := t.writeFrame(*resp); err != nil {
				return err
			}
		}
		if t.server.ShouldExit() {
			return nil
		}
	}
}

func (t *Transport) sendNotification(n Notification) error {
	return t.writeFrame(n)
}

func (t *Transport) writeFrame(payload any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	// Re-encode through generic maps so object keys are emitted sorted;
	// UseNumber keeps numeric values exactly as first encoded.
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return err
	}
	if body, err = json.Marshal(generic); err != nil {
		return err
	}
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	if _, err := io.WriteString(t.writer, header); err != nil {
		return err
	}
	_, err = t.writer.Write(body)
	return err
}

// readFrame reads one Content-Length-delimited message: header lines until
// a blank line, then exactly the declared number of bytes.
func readFrame(reader *bufio.Reader) ([]byte, error) {
	length := -1
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		name, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			parsed, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, status.JSONRPCErrorf(status.RPCParseError, "invalid Content-Length header: %s", value)
			}
			length = parsed
		}
	}
	if length < 0 {
		return nil, status.JSONRPCErrorf(status.RPCParseError, "message frame missing Content-Length header")
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
