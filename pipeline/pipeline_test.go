package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"bookflow/config"
)

const snapshotBody = `{"lastUpdateId":100,"bids":[["10.0","1"],["9.9","2"]],"asks":[["10.1","1"]]}`

func restServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/depth") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(snapshotBody))
	}))
}

func wsServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func pipelineConfig(rest, ws *httptest.Server) *config.Config {
	cfg := config.Default()
	cfg.Source.Binance.REST.URL = rest.URL
	cfg.Source.Binance.WS.URL = "ws" + strings.TrimPrefix(ws.URL, "http")
	cfg.Source.Binance.WS.Workers = 2
	cfg.Reader.RateLimit.RequestsPerSecond = 100
	cfg.Reader.RateLimit.BurstSize = 100
	return cfg
}

func pollUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBookPipelineEndToEnd(t *testing.T) {
	rest := restServer(t)
	defer rest.Close()
	// spans the snapshot id and zeroes out the best bid
	ws := wsServer(t, []string{
		`{"stream":"btcusdt@depth","data":{"U":95,"u":101,"b":[["10.0","0"]],"a":[["10.2","3"]]}}`,
	})
	defer ws.Close()

	pipe := NewBookPipeline(pipelineConfig(rest, ws))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	books, err := pipe.Init(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	// seeded from the snapshot before any stream traffic
	seed := books.Current()
	if len(seed.Bids) != 2 || seed.Bids[0].Price != "10.0" {
		t.Fatalf("unexpected seed top: %+v", seed)
	}

	pollUntil(t, func() bool {
		top := books.Current()
		return len(top.Bids) == 1 && top.Bids[0].Price == "9.9"
	})

	top := books.Current()
	if len(top.Asks) != 2 || top.Asks[0].Price != "10.1" || top.Asks[1].Price != "10.2" {
		t.Fatalf("unexpected asks after merge: %+v", top.Asks)
	}

	pipe.Stop()
	pipe.Stop()

	if _, err := books.Next(context.Background()); err == nil {
		t.Fatal("expected closed channel after stop")
	}
}

func TestBookPipelineDoubleInit(t *testing.T) {
	rest := restServer(t)
	defer rest.Close()
	ws := wsServer(t, nil)
	defer ws.Close()

	pipe := NewBookPipeline(pipelineConfig(rest, ws))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := pipe.Init(ctx, "BTCUSDT"); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer pipe.Stop()

	if _, err := pipe.Init(ctx, "BTCUSDT"); err == nil {
		t.Fatal("expected error on second init")
	}
}

func TestPricePipelineEndToEnd(t *testing.T) {
	rest := restServer(t)
	defer rest.Close()
	// first tick is at the snapshot id and must be dropped as stale
	ws := wsServer(t, []string{
		`{"stream":"btcusdt@bookTicker","data":{"u":100,"b":"9.0","B":"1","a":"9.1","A":"1"}}`,
		`{"stream":"btcusdt@bookTicker","data":{"u":101,"b":"10.05","B":"4","a":"10.15","A":"5"}}`,
	})
	defer ws.Close()

	pipe := NewPricePipeline(pipelineConfig(rest, ws))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prices, err := pipe.Init(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	// seeded from the snapshot's best levels
	seed := prices.Current()
	if seed.ID != 100 || seed.Bid.Price != "10.0" || seed.Ask.Price != "10.1" {
		t.Fatalf("unexpected seed quote: %+v", seed)
	}

	pollUntil(t, func() bool { return prices.Current().ID == 101 })

	got := prices.Current()
	if got.Bid.Price != "10.05" || got.Ask.Price != "10.15" {
		t.Fatalf("stale tick leaked through: %+v", got)
	}

	pipe.Stop()

	if _, err := prices.Next(context.Background()); err == nil {
		t.Fatal("expected closed channel after stop")
	}
}
