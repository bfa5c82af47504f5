package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ioTimeout bounds reading a request and writing its response so a stalled
// client cannot hold shutdown open.
const ioTimeout = 2 * time.Second

// Handler processes one validated request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve answers one request per connection until ctx is cancelled or the
// listener is closed, then waits for in-flight connections.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, conn, handler)
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(ioTimeout))
	resp := func() Response {
		line, err := readFrame(conn)
		if err != nil {
			return Failed(fmt.Errorf("read request: %w", err))
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			return Failed(fmt.Errorf("decode request: %w", err))
		}
		if err := req.Validate(); err != nil {
			return Failed(err)
		}
		return handler.Handle(ctx, req)
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(ioTimeout))
	_ = writeFrame(conn, resp)
}
