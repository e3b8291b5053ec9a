package infra

import (
	"bufio"
	"encoding/json"
	"io"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

const (
	eventStatusUpdate = "status_update"
	eventNewProcess   = "new_process"
)

type activityEvent struct {
	Event        string  `json:"event"`
	IdleTime     float64 `json:"idle_time"`
	AppName      string  `json:"app_name"`
	WindowTitle  string  `json:"window_title"`
	ProcessName  string  `json:"process_name"`
	PID          int     `json:"pid"`
	AudioPlaying bool    `json:"audio_playing"`
}

// newProcessEvent carries the pid as a string; the consumer expects that shape.
type newProcessEvent struct {
	Event string `json:"event"`
	PID   string `json:"pid"`
	Name  string `json:"name"`
}

// JSONEmitter writes one JSON object per line and flushes after every event.
// Safe for concurrent use; lines never interleave.
type JSONEmitter struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closed bool
}

func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{w: bufio.NewWriter(w)}
}

func (e *JSONEmitter) EmitActivity(s domain.ActivitySnapshot) error {
	return e.write(activityEvent{
		Event:        eventStatusUpdate,
		IdleTime:     s.IdleSeconds,
		AppName:      s.Foreground.DisplayName,
		WindowTitle:  s.WindowTitle,
		ProcessName:  s.Foreground.CanonicalName,
		PID:          s.Foreground.PID,
		AudioPlaying: s.AudioActive,
	})
}

func (e *JSONEmitter) EmitNewProcess(p domain.ProcessEntry) error {
	return e.write(newProcessEvent{
		Event: eventNewProcess,
		PID:   strconv.Itoa(p.PID),
		Name:  p.Name,
	})
}

func (e *JSONEmitter) write(v interface{}) error {
	line, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	line = append(line, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return domain.ErrSinkClosed
	}
	if _, err := e.w.Write(line); err != nil {
		e.closed = true
		return errors.Wrap(domain.ErrSinkClosed, err.Error())
	}
	if err := e.w.Flush(); err != nil {
		// Typically EPIPE once the parent process has gone away.
		e.closed = true
		return errors.Wrap(domain.ErrSinkClosed, err.Error())
	}
	return nil
}

var _ domain.EventSink = (*JSONEmitter)(nil)
