package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
)

// Handler processes one IPC command.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts clients until ctx ends or the listener closes. In-flight
// handlers finish before Serve returns.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

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

	var req Request
	if err := readLine(conn, &req); err != nil {
		kind := "read"
		if errors.Is(err, errMalformed) {
			kind = "decode"
		}
		_ = writeLine(conn, Failure("%s request: %v", kind, err))
		return
	}
	_ = writeLine(conn, handler.Handle(ctx, req))
}
