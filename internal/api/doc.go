// Package api provides an HTTP monitor for a running pool.
//
// # Endpoints
//
//	GET /api/status   pool state (threads, queue length, running, policy)
//	GET /api/metrics  job metrics snapshot
//	    /ws           websocket stream of pool events and status frames
//
// Every event published on the pool's event bus is forwarded to websocket
// clients as JSON, together with a status frame once per second.
//
// # Usage
//
//	srv := api.NewServer(":8080", p, m, bus)
//	go srv.Start(ctx) // returns after ctx is cancelled
package api
