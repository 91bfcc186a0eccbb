package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// streamURL builds a multiplexed stream endpoint for one symbol and channel,
// e.g. wss://host/stream?streams=btcusdt@depth.
func streamURL(base, symbol, channel string) string {
	return fmt.Sprintf("%s/stream?streams=%s@%s", base, strings.ToLower(symbol), channel)
}

// dialStream opens a websocket connection and arranges for it to be closed
// when ctx is cancelled so a blocked read unblocks. The returned stop
// function releases the watcher goroutine.
func dialStream(ctx context.Context, url string, timeout time.Duration) (*websocket.Conn, func(), error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", url, err)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	stop := func() {
		close(done)
		conn.Close()
	}
	return conn, stop, nil
}

// readFrame blocks for the next payload frame, discarding anything that is
// not a text message. Control frames (ping, pong, close handshakes) are
// already consumed by gorilla's read machinery.
func readFrame(conn *websocket.Conn) ([]byte, error) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}
