// Package ipc carries one-line JSON commands between seline processes over
// a unix socket.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Commands understood by a session owner.
const (
	CommandStatus = "status"
	CommandToggle = "toggle"
	CommandAsk    = "ask"
	CommandStop   = "stop"
	CommandCancel = "cancel"
)

// maxLineBytes bounds one request or response line.
const maxLineBytes = 1 << 20

var errMalformed = errors.New("malformed message")

// Request is one client command. Text carries the query for ask.
type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// Response is the owner's reply.
type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Busy     bool   `json:"busy,omitempty"`
	Speaking bool   `json:"speaking,omitempty"`
	Message  string `json:"message,omitempty"`
	Answer   string `json:"answer,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Failure builds an error response.
func Failure(format string, args ...any) Response {
	return Response{OK: false, Error: fmt.Sprintf(format, args...)}
}

func writeLine(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(payload, '\n'))
	return err
}

func readLine(r io.Reader, v any) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return err
		}
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal(scanner.Bytes(), v); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}
