// Package gemini talks to the Gemini Live transcription stream and the
// Gemini generateContent API used for rehearsal critiques.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/rbright/lectern/internal/dsp"
)

const (
	DefaultLiveModel   = "gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultLiveBaseURL = "wss://generativelanguage.googleapis.com/ws"
	DefaultInstruction = "You are an NYSC Executive Speech Coach. NOISE SUPPRESSION MODE: ENABLED. " +
		"Transcribe accurately for administrative terminologies."

	livePath = "/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	keepaliveInterval = 20 * time.Second
	keepaliveTimeout  = 5 * time.Second
	writeTimeout      = 5 * time.Second
)

// ErrLiveClosed is returned by SendRealtimeInput after Close.
var ErrLiveClosed = errors.New("gemini live: session closed")

// LiveConfig configures one Live session.
type LiveConfig struct {
	APIKey            string
	Model             string
	BaseURL           string
	SystemInstruction string
}

func (c LiveConfig) withDefaults() LiveConfig {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultLiveModel
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultLiveBaseURL
	}
	if strings.TrimSpace(c.SystemInstruction) == "" {
		c.SystemInstruction = DefaultInstruction
	}
	return c
}

// LiveHandlers receive server events. OnTranscript runs on the receive
// goroutine and must not call Close. OnStreamError runs once after the
// receive loop has exited.
type LiveHandlers struct {
	OnTranscript  func(fragment string)
	OnStreamError func(err error)
}

// ServerError is an error message sent by the Live endpoint.
type ServerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

func (e *ServerError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	if e.Status != "" {
		return fmt.Sprintf("gemini live: %s (%d %s)", msg, e.Code, e.Status)
	}
	return fmt.Sprintf("gemini live: %s", msg)
}

type setupMessage struct {
	Setup setupConfig `json:"setup"`
}

type setupConfig struct {
	Model                   string             `json:"model"`
	GenerationConfig        generationConfig   `json:"generationConfig"`
	SystemInstruction       *systemInstruction `json:"systemInstruction,omitempty"`
	InputAudioTranscription *struct{}          `json:"inputAudioTranscription"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type systemInstruction struct {
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"mediaChunks"`
}

type mediaChunk struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete,omitempty"`
	ServerContent *serverContent   `json:"serverContent,omitempty"`
	Error         *ServerError     `json:"error,omitempty"`
}

type serverContent struct {
	InputTranscription *transcription `json:"inputTranscription,omitempty"`
	TurnComplete       bool           `json:"turnComplete,omitempty"`
}

type transcription struct {
	Text string `json:"text"`
}

// Live is one open BidiGenerateContent session carrying microphone audio
// upstream and input transcription fragments downstream.
type Live struct {
	conn     *websocket.Conn
	handlers LiveHandlers

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	closed bool
	errVal error
	sent   int
}

// DialLive connects, sends the setup message and starts the receive and
// keepalive loops.
func DialLive(ctx context.Context, cfg LiveConfig, handlers LiveHandlers) (*Live, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini live: api key is empty")
	}

	endpoint := strings.TrimRight(cfg.BaseURL, "/") + livePath + "?key=" + url.QueryEscape(cfg.APIKey)
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini live: dial: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	liveCtx, cancel := context.WithCancel(context.Background())
	live := &Live{
		conn:     conn,
		handlers: handlers,
		ctx:      liveCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	setup := setupMessage{Setup: setupConfig{
		Model:                   "models/" + cfg.Model,
		GenerationConfig:        generationConfig{ResponseModalities: []string{"AUDIO"}},
		SystemInstruction:       &systemInstruction{Parts: []textPart{{Text: cfg.SystemInstruction}}},
		InputAudioTranscription: &struct{}{},
	}}
	if err := live.writeJSON(setup); err != nil {
		cancel()
		_ = conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, fmt.Errorf("gemini live: setup: %w", err)
	}

	go live.run()
	go live.keepaliveLoop()

	return live, nil
}

// SendRealtimeInput writes one encoded audio unit.
func (l *Live) SendRealtimeInput(unit dsp.Unit) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLiveClosed
	}
	l.mu.Unlock()

	msg := realtimeInputMessage{RealtimeInput: realtimeInput{
		MediaChunks: []mediaChunk{{MIMEType: unit.Format, Data: unit.Payload}},
	}}
	if err := l.writeJSON(msg); err != nil {
		return err
	}

	l.mu.Lock()
	l.sent++
	l.mu.Unlock()
	return nil
}

// Sent reports how many audio units were written.
func (l *Live) Sent() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent
}

// Err returns the first transport error that ended the session.
func (l *Live) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errVal
}

// Done is closed when the receive loop exits.
func (l *Live) Done() <-chan struct{} {
	return l.done
}

// Close ends the session. It is safe to call more than once.
func (l *Live) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	err := l.conn.Close(websocket.StatusNormalClosure, "rehearsal finished")
	l.cancel()
	<-l.done

	var closeErr websocket.CloseError
	switch {
	case err == nil, errors.As(err, &closeErr), errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed):
		return nil
	case l.Err() != nil:
		// The stream already failed and was reported through OnStreamError.
		return nil
	}
	return fmt.Errorf("gemini live: close: %w", err)
}

func (l *Live) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("gemini live: marshal: %w", err)
	}
	ctx, cancel := context.WithTimeout(l.ctx, writeTimeout)
	defer cancel()
	if err := l.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("gemini live: write: %w", err)
	}
	return nil
}

func (l *Live) run() {
	err := l.receiveLoop()
	if err != nil && !l.isClosed() {
		l.mu.Lock()
		l.errVal = err
		l.mu.Unlock()
	} else {
		err = nil
	}
	close(l.done)

	if err != nil && l.handlers.OnStreamError != nil {
		l.handlers.OnStreamError(err)
	}
}

// receiveLoop dispatches server messages until the connection fails, the
// server reports an error, or Close is called.
func (l *Live) receiveLoop() error {
	for {
		_, data, err := l.conn.Read(l.ctx)
		if err != nil {
			return fmt.Errorf("gemini live: read: %w", err)
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Error != nil {
			return msg.Error
		}
		if msg.ServerContent != nil && msg.ServerContent.InputTranscription != nil {
			if text := msg.ServerContent.InputTranscription.Text; text != "" && l.handlers.OnTranscript != nil {
				l.handlers.OnTranscript(text)
			}
		}
	}
}

func (l *Live) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(l.ctx, keepaliveTimeout)
			_ = l.conn.Ping(pingCtx)
			cancel()
		}
	}
}

func (l *Live) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
