// Package ipc carries newline-delimited JSON requests from short-lived
// lectern invocations to the process that owns the current session.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Commands understood by the session owner.
const (
	CommandStatus  = "status"
	CommandToggle  = "toggle"
	CommandStop    = "stop"
	CommandCancel  = "cancel"
	CommandCorrect = "correct"
)

// maxFrameBytes bounds one encoded request or response, including the
// trailing newline.
const maxFrameBytes = 1 << 20

var errFrameTooLarge = errors.New("frame exceeds 1 MiB")

type Request struct {
	Command string `json:"command"`
	// ID and Text carry the target segment and replacement for "correct".
	ID   string `json:"id,omitempty"`
	Text string `json:"text,omitempty"`
}

// Validate rejects requests the owner cannot act on.
func (r Request) Validate() error {
	switch r.Command {
	case CommandStatus, CommandToggle, CommandStop, CommandCancel:
		return nil
	case CommandCorrect:
		if strings.TrimSpace(r.ID) == "" {
			return errors.New("correct requires a segment id")
		}
		if strings.TrimSpace(r.Text) == "" {
			return errors.New("correct requires replacement text")
		}
		return nil
	case "":
		return errors.New("missing command")
	default:
		return fmt.Errorf("unknown command %q", r.Command)
	}
}

// Segment is one live transcript sentence as reported by "status".
type Segment struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Correction string `json:"correction,omitempty"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	Device     string    `json:"device,omitempty"`
	Level      float64   `json:"level,omitempty"`
	WPM        int       `json:"wpm,omitempty"`
	ElapsedMS  int64     `json:"elapsed_ms,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Segments   []Segment `json:"segments,omitempty"`
}

// Failed reports err to the client.
func Failed(err error) Response {
	return Response{OK: false, Error: err.Error()}
}

func writeFrame(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if len(data) > maxFrameBytes {
		return errFrameTooLarge
	}
	_, err = w.Write(data)
	return err
}

// readFrame reads one line and returns it undecoded so callers can tell
// transport failures from malformed payloads.
func readFrame(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(io.LimitReader(r, maxFrameBytes)).ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) == maxFrameBytes {
			return nil, errFrameTooLarge
		}
		return nil, err
	}
	return line, nil
}
