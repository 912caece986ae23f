package discord

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// IPC opcodes.
const (
	opHandshake uint32 = 0
	opFrame     uint32 = 1
	opClose     uint32 = 2
	opPing      uint32 = 3
	opPong      uint32 = 4
)

// Replies larger than this are treated as a corrupt stream.
const maxFrameSize = 1 << 20

// ErrConnectionClosed is returned when Discord hangs up without an error
// payload.
var ErrConnectionClosed = errors.New("discord closed the connection")

// RPCError is an error reported by Discord, either as an ERROR event or
// in a CLOSE frame.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("discord error %d: %s", e.Code, e.Message)
}

// reply is the envelope of every frame Discord sends.
type reply struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

type errorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeFrame(w io.Writer, op uint32, payload []byte) error {
	buf := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], op)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload))) //nolint:gosec // payloads are small JSON documents
	copy(buf[8:], payload)
	_, err := w.Write(buf)
	return err
}

func readFrame(r io.Reader) (uint32, []byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, closedOr(err)
	}
	op := binary.LittleEndian.Uint32(header[0:4])
	size := binary.LittleEndian.Uint32(header[4:8])
	if size > maxFrameSize {
		return 0, nil, fmt.Errorf("frame of %d bytes exceeds limit", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, closedOr(err)
	}
	return op, payload, nil
}

func closedOr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrConnectionClosed
	}
	return err
}

// closeError converts the payload of a CLOSE frame.
func closeError(payload []byte) error {
	var d errorData
	if err := json.Unmarshal(payload, &d); err != nil || d.Message == "" {
		return ErrConnectionClosed
	}
	return &RPCError{Code: d.Code, Message: d.Message}
}

// parseReply decodes a message frame, turning an ERROR event into an
// *RPCError.
func parseReply(payload []byte) (reply, error) {
	var r reply
	if err := json.Unmarshal(payload, &r); err != nil {
		return reply{}, fmt.Errorf("decode reply: %w", err)
	}
	if r.Evt == "ERROR" {
		var d errorData
		if err := json.Unmarshal(r.Data, &d); err != nil {
			return r, &RPCError{Message: string(r.Data)}
		}
		return r, &RPCError{Code: d.Code, Message: d.Message}
	}
	return r, nil
}
