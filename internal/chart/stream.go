// Package chart implements the render surfaces of a live session: a
// websocket stream consumed by the live page, PNG snapshots and a plain text
// table for the terminal.
package chart

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/newthinker/cryptodash/internal/live"
)

// Frame operations.
const (
	OpHello   = "hello"
	OpMount   = "mount"
	OpUpdate  = "update"
	OpDestroy = "destroy"
	OpError   = "error"
	OpEmpty   = "empty"
)

// Frame is one message on the live websocket.
type Frame struct {
	Op      string        `json:"op"`
	Chart   live.Kind     `json:"chart,omitempty"`
	Title   string        `json:"title,omitempty"`
	Axis    string        `json:"axis,omitempty"`
	Series  []live.Series `json:"series,omitempty"`
	Session string        `json:"session,omitempty"`
	Symbols []string      `json:"symbols,omitempty"`
	Message string        `json:"message,omitempty"`
}

// Stream writes frames to one websocket connection. Writes are serialized.
type Stream struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu sync.Mutex
}

// NewStream wraps conn. A zero writeTimeout disables write deadlines.
func NewStream(conn *websocket.Conn, writeTimeout time.Duration) *Stream {
	return &Stream{conn: conn, writeTimeout: writeTimeout}
}

func (s *Stream) send(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return s.conn.WriteJSON(f)
}

// Hello announces the session the connection is bound to.
func (s *Stream) Hello(session string, symbols []string) error {
	return s.send(Frame{Op: OpHello, Session: session, Symbols: symbols})
}

// Error sends the one-shot message shown when a session stops.
func (s *Stream) Error(msg string) error {
	return s.send(Frame{Op: OpError, Message: msg})
}

// Empty tells the page there is nothing selected to track.
func (s *Stream) Empty(msg string) error {
	return s.send(Frame{Op: OpEmpty, Message: msg})
}

// Ping sends a websocket ping control frame.
func (s *Stream) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

// Surface returns the surface of one chart on this stream.
func (s *Stream) Surface(kind live.Kind) live.Surface {
	return &streamSurface{stream: s, kind: kind}
}

type streamSurface struct {
	stream *Stream
	kind   live.Kind
}

func (c *streamSurface) Mount(series []live.Series) error {
	return c.stream.send(Frame{
		Op:     OpMount,
		Chart:  c.kind,
		Title:  c.kind.Title(),
		Axis:   c.kind.Axis(),
		Series: series,
	})
}

func (c *streamSurface) Update(series []live.Series) error {
	return c.stream.send(Frame{Op: OpUpdate, Chart: c.kind, Series: series})
}

// Destroy tells the page to release the chart. A closed connection has
// nothing left to release.
func (c *streamSurface) Destroy() {
	_ = c.stream.send(Frame{Op: OpDestroy, Chart: c.kind})
}
