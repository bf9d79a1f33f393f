package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jwhyun/matchgate/params"
	"github.com/jwhyun/matchgate/pkg/engine"
	"github.com/jwhyun/matchgate/pkg/gateway"
	"github.com/jwhyun/matchgate/pkg/storage"
)

type serverFixture struct {
	server   *Server
	pipeline *gateway.Pipeline
	books    *engine.BookRegistry
	journal  *storage.TradeJournal
	ts       *httptest.Server
}

func newFixture(t *testing.T, cfg params.Config, startPipeline bool) *serverFixture {
	t.Helper()
	log := zap.NewNop().Sugar()

	books := engine.NewBookRegistry(engine.DefaultFees)
	journal, err := storage.OpenTradeJournal(filepath.Join(t.TempDir(), "trades"), 64, log)
	require.NoError(t, err)

	pipeline := gateway.NewPipeline(cfg.Gateway, gateway.BookEngine{Registry: books}, journal, log)
	if startPipeline {
		pipeline.Start(context.Background())
	}

	hub := NewHub(log)
	srv := NewServer(cfg, pipeline, books, journal, hub, log)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		ts.Close()
		if startPipeline {
			pipeline.Stop()
		}
		journal.Close()
	})

	return &serverFixture{server: srv, pipeline: pipeline, books: books, journal: journal, ts: ts}
}

func testConfig() params.Config {
	cfg := params.Default()
	cfg.Gateway.MaxBatchDelay = 5 * time.Millisecond
	return cfg
}

func postJSON(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestSubmitSingleOrder(t *testing.T) {
	f := newFixture(t, testConfig(), true)

	resp, body := postJSON(t, f.ts.URL+"/orders",
		`{"symbol":"BTC-USD","price":"100","quantity":"1","side":"Buy","order_type":"Limit"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out SubmitResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "queued", out.Status)
	assert.Equal(t, 1, out.Count)

	// The order flows through to the engine, canonicalized.
	require.Eventually(t, func() bool {
		snap, ok := f.books.Snapshot("BTC-USD", 5)
		return ok && len(snap.Bids) == 1
	}, 2*time.Second, time.Millisecond)

	snap, _ := f.books.Snapshot("BTC-USD", 5)
	assert.Equal(t, 100.0, snap.Bids[0].Price)
	assert.Equal(t, 1.0, snap.Bids[0].Qty)
}

func TestSubmitOrderArray(t *testing.T) {
	f := newFixture(t, testConfig(), true)

	resp, body := postJSON(t, f.ts.URL+"/orders", `[
		{"symbol":"BTC-USD","price":"100","quantity":"1","side":"BUY","order_type":"LIMIT"},
		{"symbol":"BTC-USD","price":"99","quantity":"2","side":"buy","order_type":"limit"}
	]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out SubmitResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, 0, out.Rejected)
}

func TestSubmitReportsValidationRejects(t *testing.T) {
	f := newFixture(t, testConfig(), true)

	resp, body := postJSON(t, f.ts.URL+"/orders", `[
		{"symbol":"BTC-USD","price":"100","quantity":"1","side":"BUY","order_type":"LIMIT"},
		{"symbol":"BTC-USD","price":"bogus","quantity":"1","side":"BUY","order_type":"LIMIT"}
	]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out SubmitResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, 1, out.Rejected)
}

func TestSubmitOverloadedBackpressure(t *testing.T) {
	cfg := testConfig()
	cfg.Gateway.QueueCapacity = 2
	cfg.Gateway.Collectors = 1
	// Pipeline not started: nothing drains the queue.
	f := newFixture(t, cfg, false)

	resp, body := postJSON(t, f.ts.URL+"/orders", `[
		{"symbol":"BTC-USD","price":"100","quantity":"1","side":"BUY","order_type":"LIMIT"},
		{"symbol":"BTC-USD","price":"100","quantity":"2","side":"BUY","order_type":"LIMIT"},
		{"symbol":"BTC-USD","price":"100","quantity":"3","side":"BUY","order_type":"LIMIT"}
	]`)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var out OverloadedResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "overloaded", out.Error)
	assert.Equal(t, 2, out.Accepted)
	assert.Equal(t, 1, out.Rejected)
	// Accepted orders remain enqueued.
	assert.Equal(t, 2, f.pipeline.Pending())
}

func TestSubmitRejectsMalformedJSON(t *testing.T) {
	f := newFixture(t, testConfig(), false)

	resp, _ := postJSON(t, f.ts.URL+"/orders", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, f.ts.URL+"/orders", `[]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetOrderbook(t *testing.T) {
	f := newFixture(t, testConfig(), false)

	resp, err := http.Get(f.ts.URL + "/markets/BTC-USD/orderbook")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	book := f.books.Resolve("BTC-USD")
	_, err = book.AddOrder(100, 1, engine.Buy, engine.Limit)
	require.NoError(t, err)

	resp, err = http.Get(f.ts.URL + "/markets/BTC-USD/orderbook?depth=3")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap engine.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "BTC-USD", snap.Symbol)
	assert.Equal(t, 3, snap.Depth)
	require.Len(t, snap.Bids, 1)
}

func TestGetRecentTrades(t *testing.T) {
	f := newFixture(t, testConfig(), false)

	f.journal.Record([]engine.Trade{
		{ID: 1, Symbol: "BTC-USD", Price: 100, Qty: 1},
		{ID: 2, Symbol: "BTC-USD", Price: 101, Qty: 2},
	})

	resp, err := http.Get(f.ts.URL + "/markets/BTC-USD/trades?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out TradesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "BTC-USD", out.Symbol)
	require.Len(t, out.Trades, 1)
	assert.Equal(t, uint64(2), out.Trades[0].ID)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, testConfig(), false)

	resp, err := http.Get(f.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out.Status)
}
