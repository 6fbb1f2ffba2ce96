package pool

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/wheberth/cppthreadpool/internal/events"
	"github.com/wheberth/cppthreadpool/internal/job"
	"github.com/wheberth/cppthreadpool/internal/logger"
	"github.com/wheberth/cppthreadpool/internal/metrics"
)

var (
	ErrPoolClosed     = errors.New("pool: closed")
	ErrNilJob         = errors.New("pool: nil job")
	ErrInvalidThreads = errors.New("pool: thread count must be non-negative")
	ErrInvalidPolicy  = errors.New("pool: unknown shutdown policy")
)

// Policy は停止時にキューに残ったジョブの扱いを表す
type Policy int

const (
	PolicyDrain Policy = iota
	PolicyHardStop
)

func (p Policy) String() string {
	switch p {
	case PolicyDrain:
		return "drain"
	case PolicyHardStop:
		return "hard-stop"
	default:
		return "unknown"
	}
}

// ParsePolicy は文字列から停止ポリシーを解釈する
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drain":
		return PolicyDrain, nil
	case "hard-stop", "hardstop", "hard_stop":
		return PolicyHardStop, nil
	default:
		return PolicyDrain, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// Config はプールの設定
type Config struct {
	Threads int    // ワーカー数（0も可）
	Policy  Policy // 停止ポリシー

	Logger  *logger.Logger   // nil でデフォルトロガー
	Metrics *metrics.Metrics // nil で収集しない
	Events  *events.Bus      // nil で配信しない
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Threads: runtime.NumCPU(),
		Policy:  PolicyDrain,
	}
}

// Option はプール設定を変更する
type Option func(*Config)

// WithPolicy は停止ポリシーを指定する
func WithPolicy(policy Policy) Option {
	return func(c *Config) { c.Policy = policy }
}

// WithLogger はロガーを指定する
func WithLogger(l *logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics はメトリクスの収集先を指定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithEvents はイベントの配信先を指定する
func WithEvents(b *events.Bus) Option {
	return func(c *Config) { c.Events = b }
}

// Pool は固定数のワーカーと FIFO キューを管理する
type Pool struct {
	threads int
	policy  Policy
	log     *logger.Logger
	metrics *metrics.Metrics
	events  *events.Bus

	// mu は queue, stop, running, discarded を保護する
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []*job.Job
	stop      bool
	running   int
	discarded int

	wg        sync.WaitGroup
	closeOnce sync.Once
	doneOnce  sync.Once
}

// New は threads 個のワーカーを持つプールを作成し、即座に起動する
func New(threads int, opts ...Option) (*Pool, error) {
	config := DefaultConfig()
	config.Threads = threads
	for _, opt := range opts {
		opt(&config)
	}
	return NewWithConfig(config)
}

// NewWithConfig は設定を指定してプールを作成する
func NewWithConfig(config Config) (*Pool, error) {
	if config.Threads < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreads, config.Threads)
	}
	if config.Policy != PolicyDrain && config.Policy != PolicyHardStop {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPolicy, config.Policy)
	}

	log := config.Logger
	if log == nil {
		log = logger.Default
	}

	p := &Pool{
		threads: config.Threads,
		policy:  config.Policy,
		log:     log,
		metrics: config.Metrics,
		events:  config.Events,
	}
	p.cond = sync.NewCond(&p.mu)

	for i := range p.threads {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.log.Info("", "Pool started with %d workers (policy: %s)", p.threads, p.policy)
	p.events.Publish(events.NewPoolStartedEvent(p.threads, p.policy.String()))
	return p, nil
}

// Submit はジョブをキューの末尾に追加し、待機中のワーカーを一つ起こす
func (p *Pool) Submit(j *job.Job) error {
	if j == nil {
		return ErrNilJob
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop {
		return ErrPoolClosed
	}
	// 完了シグナルはワーカーから見える前に待機可能になっている
	if err := j.MarkQueued(); err != nil {
		return err
	}

	p.queue = append(p.queue, j)
	if p.metrics != nil {
		p.metrics.RecordSubmit()
	}
	p.events.Publish(events.NewJobSubmittedEvent(j.ID(), len(p.queue)))
	p.cond.Signal()

	p.log.Debug("", "Job %s submitted (queued: %d)", j.ID(), len(p.queue))
	return nil
}

// Go は body からジョブを作成して投入する
func (p *Pool) Go(body func()) (*job.Job, error) {
	if body == nil {
		return nil, job.ErrNilBody
	}
	j := job.New(body)
	if err := p.Submit(j); err != nil {
		return nil, err
	}
	return j, nil
}

// worker は個々のワーカーゴルーチン
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	tag := fmt.Sprintf("worker-%d", id)
	p.log.Debug(tag, "started")

	for {
		j, ok := p.next()
		if !ok {
			p.log.Debug(tag, "stopped")
			return
		}
		p.run(tag, id, j)
	}
}

// next はキューの先頭のジョブを取り出す
// 停止すべき場合は false を返す
func (p *Pool) next() (*job.Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.stop {
		p.cond.Wait()
	}
	if p.stop && (p.policy == PolicyHardStop || len(p.queue) == 0) {
		return nil, false
	}

	j := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	p.running++
	return j, true
}

// run はジョブを同期的に実行する
func (p *Pool) run(tag string, id int, j *job.Job) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error(tag, "Job %s panicked: %v", j.ID(), r)
			panic(r)
		}
	}()

	// 開始イベントは実行権を得た場合のみ配信する
	err := j.Run(func() {
		p.events.Publish(events.NewJobStartedEvent(j.ID(), id))
	})
	if err != nil {
		p.log.Warn(tag, "Job %s skipped: %v", j.ID(), err)
	} else {
		if p.metrics != nil {
			p.metrics.RecordCompletion(j.QueueWait(), j.RunTime())
		}
		p.events.Publish(events.NewJobCompletedEvent(j.ID(), id, j.RunTime()))
		p.log.Debug(tag, "Job %s completed in %v", j.ID(), j.RunTime())
	}

	p.mu.Lock()
	p.running--
	p.mu.Unlock()
}

// Close はプールを停止し、全ワーカーの終了を待つ
// 複数回・並行に呼び出しても安全で、いずれも全ワーカーの終了まで待つ
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.stop = true
		p.cond.Broadcast()
		p.mu.Unlock()
	})

	p.wg.Wait()

	p.doneOnce.Do(func() {
		p.mu.Lock()
		p.discarded = len(p.queue)
		discarded := p.discarded
		p.mu.Unlock()

		if discarded > 0 {
			p.log.Warn("", "Pool stopped with %d queued jobs discarded", discarded)
		} else {
			p.log.Info("", "Pool stopped")
		}
		p.events.Publish(events.NewPoolStoppedEvent(discarded))
	})
}

// Threads はワーカー数を返す
func (p *Pool) Threads() int {
	return p.threads
}

// Policy は停止ポリシーを返す
func (p *Pool) Policy() Policy {
	return p.policy
}

// QueueLen は実行待ちのジョブ数を返す
func (p *Pool) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Running は実行中のジョブ数を返す
func (p *Pool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Closed は停止が要求済みかを返す
func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop
}

// Discarded は停止時に実行されずに残ったジョブ数を返す
func (p *Pool) Discarded() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discarded
}

// Stats はプールの状態のスナップショット
type Stats struct {
	Threads   int    `json:"threads"`
	Policy    string `json:"policy"`
	QueueLen  int    `json:"queue_len"`
	Running   int    `json:"running"`
	Closed    bool   `json:"closed"`
	Discarded int    `json:"discarded"`
}

// Stats は現在の状態を返す
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Threads:   p.threads,
		Policy:    p.policy.String(),
		QueueLen:  len(p.queue),
		Running:   p.running,
		Closed:    p.stop,
		Discarded: p.discarded,
	}
}
