package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rbright/lectern/internal/dsp"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func startLiveServer(t *testing.T, handler func(ctx context.Context, conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.CloseNow()
		handler(r.Context(), conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func writeFrame(ctx context.Context, conn *websocket.Conn, v any) {
	data, _ := json.Marshal(v)
	_ = conn.Write(ctx, websocket.MessageText, data)
}

type setupFrame struct {
	Setup struct {
		Model            string `json:"model"`
		GenerationConfig struct {
			ResponseModalities []string `json:"responseModalities"`
		} `json:"generationConfig"`
		SystemInstruction struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"systemInstruction"`
		InputAudioTranscription *json.RawMessage `json:"inputAudioTranscription"`
	} `json:"setup"`
}

func TestDialLiveSendsSetupAndAudio(t *testing.T) {
	setupCh := make(chan setupFrame, 1)
	chunkCh := make(chan realtimeInputMessage, 1)
	keyCh := make(chan string, 1)

	srv := startLiveServer(t, func(ctx context.Context, conn *websocket.Conn, r *http.Request) {
		keyCh <- r.URL.Query().Get("key")

		var setup setupFrame
		readFrame(t, ctx, conn, &setup)
		setupCh <- setup

		var chunk realtimeInputMessage
		readFrame(t, ctx, conn, &chunk)
		chunkCh <- chunk

		_, _, _ = conn.Read(ctx)
	})

	live, err := DialLive(context.Background(), LiveConfig{APIKey: "k&y", BaseURL: wsURL(srv)}, LiveHandlers{})
	require.NoError(t, err)
	defer live.Close()

	unit := dsp.EncodePCM16([]float32{0.25, -0.25})
	require.NoError(t, live.SendRealtimeInput(unit))
	require.Equal(t, 1, live.Sent())

	require.Equal(t, "k&y", <-keyCh)

	setup := <-setupCh
	require.Equal(t, "models/"+DefaultLiveModel, setup.Setup.Model)
	require.Equal(t, []string{"AUDIO"}, setup.Setup.GenerationConfig.ResponseModalities)
	require.NotNil(t, setup.Setup.InputAudioTranscription)
	require.Len(t, setup.Setup.SystemInstruction.Parts, 1)
	require.Contains(t, setup.Setup.SystemInstruction.Parts[0].Text, "NOISE SUPPRESSION MODE")

	chunk := <-chunkCh
	require.Len(t, chunk.RealtimeInput.MediaChunks, 1)
	require.Equal(t, "audio/pcm;rate=16000", chunk.RealtimeInput.MediaChunks[0].MIMEType)
	require.Equal(t, unit.Payload, chunk.RealtimeInput.MediaChunks[0].Data)
}

func TestLiveDeliversTranscriptFragments(t *testing.T) {
	fragments := make(chan string, 4)

	srv := startLiveServer(t, func(ctx context.Context, conn *websocket.Conn, _ *http.Request) {
		var setup setupFrame
		readFrame(t, ctx, conn, &setup)
		writeFrame(ctx, conn, map[string]any{"setupComplete": map[string]any{}})
		writeFrame(ctx, conn, map[string]any{"serverContent": map[string]any{"inputTranscription": map[string]any{"text": "Good morning "}}})
		writeFrame(ctx, conn, map[string]any{"serverContent": map[string]any{"turnComplete": true}})
		writeFrame(ctx, conn, map[string]any{"serverContent": map[string]any{"inputTranscription": map[string]any{"text": "corps members."}}})
		_, _, _ = conn.Read(ctx)
	})

	live, err := DialLive(context.Background(), LiveConfig{APIKey: "key", BaseURL: wsURL(srv)}, LiveHandlers{
		OnTranscript: func(fragment string) { fragments <- fragment },
		OnStreamError: func(err error) {
			t.Errorf("unexpected stream error: %v", err)
		},
	})
	require.NoError(t, err)

	require.Equal(t, "Good morning ", receive(t, fragments))
	require.Equal(t, "corps members.", receive(t, fragments))

	require.NoError(t, live.Close())
	require.NoError(t, live.Close())
	require.ErrorIs(t, live.SendRealtimeInput(dsp.Unit{}), ErrLiveClosed)
	require.NoError(t, live.Err())
}

func TestLiveReportsServerError(t *testing.T) {
	errCh := make(chan error, 1)

	srv := startLiveServer(t, func(ctx context.Context, conn *websocket.Conn, _ *http.Request) {
		var setup setupFrame
		readFrame(t, ctx, conn, &setup)
		writeFrame(ctx, conn, map[string]any{"error": map[string]any{"code": 429, "message": "quota exhausted", "status": "RESOURCE_EXHAUSTED"}})
		_, _, _ = conn.Read(ctx)
	})

	live, err := DialLive(context.Background(), LiveConfig{APIKey: "key", BaseURL: wsURL(srv)}, LiveHandlers{
		OnStreamError: func(err error) { errCh <- err },
	})
	require.NoError(t, err)

	streamErr := receive(t, errCh)
	var serverErr *ServerError
	require.ErrorAs(t, streamErr, &serverErr)
	require.Equal(t, 429, serverErr.Code)
	require.Contains(t, streamErr.Error(), "quota exhausted")
	require.Equal(t, streamErr, live.Err())

	require.NoError(t, live.Close())
}

func TestLiveReportsUnexpectedDisconnect(t *testing.T) {
	errCh := make(chan error, 1)

	srv := startLiveServer(t, func(ctx context.Context, conn *websocket.Conn, _ *http.Request) {
		var setup setupFrame
		readFrame(t, ctx, conn, &setup)
		_ = conn.Close(websocket.StatusGoingAway, "maintenance")
	})

	live, err := DialLive(context.Background(), LiveConfig{APIKey: "key", BaseURL: wsURL(srv)}, LiveHandlers{
		OnStreamError: func(err error) { errCh <- err },
	})
	require.NoError(t, err)

	streamErr := receive(t, errCh)
	require.ErrorContains(t, streamErr, "read")
	require.NoError(t, live.Close())
}

func TestDialLiveValidatesInput(t *testing.T) {
	_, err := DialLive(context.Background(), LiveConfig{}, LiveHandlers{})
	require.ErrorContains(t, err, "api key is empty")

	_, err = DialLive(context.Background(), LiveConfig{APIKey: "key", BaseURL: "ws://127.0.0.1:1"}, LiveHandlers{})
	require.ErrorContains(t, err, "dial")
}

func TestServerErrorMessage(t *testing.T) {
	require.Equal(t, "gemini live: unknown error", (&ServerError{}).Error())
	require.Equal(t, "gemini live: bad model (400 INVALID_ARGUMENT)", (&ServerError{Code: 400, Message: "bad model", Status: "INVALID_ARGUMENT"}).Error())
}

func receive[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}
