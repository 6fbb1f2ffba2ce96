package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/wheberth/cppthreadpool/internal/events"
	"github.com/wheberth/cppthreadpool/internal/logger"
	"github.com/wheberth/cppthreadpool/internal/metrics"
	"github.com/wheberth/cppthreadpool/internal/pool"

	"golang.org/x/net/websocket"
)

const statusInterval = 1 * time.Second

// Server はプールのモニタサーバー
type Server struct {
	addr    string
	pool    *pool.Pool
	metrics *metrics.Metrics
	bus     *events.Bus

	mu        sync.RWMutex
	wsClients map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しいモニタサーバーを作成する
// metrics と bus は nil でもよい
func NewServer(addr string, p *pool.Pool, m *metrics.Metrics, bus *events.Bus) *Server {
	return &Server{
		addr:      addr,
		pool:      p,
		metrics:   m,
		bus:       bus,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))
	return mux
}

// Start はサーバーを開始する
// ctx がキャンセルされるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go s.broadcastLoop(ctx)

	logger.Info("", "Monitor starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.pool.Stats())
}

// MetricsResponse はメトリクスレスポンス
type MetricsResponse struct {
	Submitted         uint64  `json:"submitted"`
	Completed         uint64  `json:"completed"`
	Throughput        float64 `json:"throughput"`
	OverallThroughput float64 `json:"overall_throughput"`
	AvgRunMs          float64 `json:"avg_run_ms"`
	P99RunMs          float64 `json:"p99_run_ms"`
	AvgQueueWaitMs    float64 `json:"avg_queue_wait_ms"`
	P99QueueWaitMs    float64 `json:"p99_queue_wait_ms"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := MetricsResponse{}
	if s.metrics != nil {
		snap := s.metrics.Snapshot()
		resp = MetricsResponse{
			Submitted:         snap.Submitted,
			Completed:         snap.Completed,
			Throughput:        snap.Throughput,
			OverallThroughput: snap.OverallThroughput,
			AvgRunMs:          millis(snap.AverageRunTime),
			P99RunMs:          millis(snap.P99RunTime),
			AvgQueueWaitMs:    millis(snap.AverageQueueWait),
			P99QueueWaitMs:    millis(snap.P99QueueWait),
		}
	}

	s.writeJSON(w, resp)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// 切断されるまで接続を維持する
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

// ClientCount は接続中の websocket クライアント数を返す
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wsClients)
}

func (s *Server) broadcast(data any) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// broadcastLoop はバスのイベントと定期的なステータスを配信する
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	var eventCh <-chan events.Event
	if s.bus != nil {
		eventCh = s.bus.Subscribe()
		defer s.bus.Unsubscribe(eventCh)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-eventCh:
			if !ok {
				eventCh = nil
				continue
			}
			s.broadcast(map[string]any{
				"type":  "event",
				"event": ev,
			})
		case <-ticker.C:
			s.broadcast(map[string]any{
				"type":   "status",
				"status": s.pool.Stats(),
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("", "Failed to encode JSON: %v", err)
	}
}
