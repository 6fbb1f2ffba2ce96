package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMaxSamples = 1000

// Config はメトリクスの設定
type Config struct {
	MaxLatencySamples int // P99算出用に保持するサンプル数
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{MaxLatencySamples: defaultMaxSamples}
}

// Metrics はジョブ実行のメトリクスを収集する
type Metrics struct {
	submitted   atomic.Uint64
	completed   atomic.Uint64
	totalRunNs  atomic.Uint64
	totalWaitNs atomic.Uint64

	mu            sync.RWMutex
	startTime     time.Time
	lastResetTime time.Time
	windowJobs    uint64
	runTimes      []time.Duration
	waitTimes     []time.Duration
	maxSamples    int
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig は設定を指定してメトリクスを作成する
func NewWithConfig(config Config) *Metrics {
	maxSamples := config.MaxLatencySamples
	if maxSamples <= 0 {
		maxSamples = defaultMaxSamples
	}
	now := time.Now()
	return &Metrics{
		startTime:     now,
		lastResetTime: now,
		runTimes:      make([]time.Duration, 0, maxSamples),
		waitTimes:     make([]time.Duration, 0, maxSamples),
		maxSamples:    maxSamples,
	}
}

// RecordSubmit はジョブの投入を記録する
func (m *Metrics) RecordSubmit() {
	m.submitted.Add(1)
}

// RecordCompletion は完了したジョブのキュー待ち時間と実行時間を記録する
func (m *Metrics) RecordCompletion(queueWait, runTime time.Duration) {
	m.completed.Add(1)
	m.totalRunNs.Add(uint64(runTime.Nanoseconds()))
	m.totalWaitNs.Add(uint64(queueWait.Nanoseconds()))

	m.mu.Lock()
	m.windowJobs++
	if len(m.runTimes) < m.maxSamples {
		m.runTimes = append(m.runTimes, runTime)
		m.waitTimes = append(m.waitTimes, queueWait)
	}
	m.mu.Unlock()
}

// Submitted は投入済みジョブ数を返す
func (m *Metrics) Submitted() uint64 {
	return m.submitted.Load()
}

// Completed は完了ジョブ数を返す
func (m *Metrics) Completed() uint64 {
	return m.completed.Load()
}

// Throughput は直近ウィンドウの秒間完了数を返す
func (m *Metrics) Throughput() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.lastResetTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.windowJobs) / elapsed
}

// OverallThroughput は開始からの平均秒間完了数を返す
func (m *Metrics) OverallThroughput() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.completed.Load()) / elapsed
}

// AverageRunTime は平均実行時間を返す
func (m *Metrics) AverageRunTime() time.Duration {
	total := m.completed.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalRunNs.Load() / total)
}

// AverageQueueWait は平均キュー待ち時間を返す
func (m *Metrics) AverageQueueWait() time.Duration {
	total := m.completed.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalWaitNs.Load() / total)
}

// P99RunTime は実行時間のP99を返す（サンプルベース）
func (m *Metrics) P99RunTime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return p99(m.runTimes)
}

// P99QueueWait はキュー待ち時間のP99を返す（サンプルベース）
func (m *Metrics) P99QueueWait() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return p99(m.waitTimes)
}

func p99(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Reset はウィンドウメトリクスをリセットする
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windowJobs = 0
	m.lastResetTime = time.Now()
	m.runTimes = m.runTimes[:0]
	m.waitTimes = m.waitTimes[:0]
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	Submitted         uint64        `json:"submitted"`
	Completed         uint64        `json:"completed"`
	Throughput        float64       `json:"throughput"`
	OverallThroughput float64       `json:"overall_throughput"`
	AverageRunTime    time.Duration `json:"average_run_time"`
	P99RunTime        time.Duration `json:"p99_run_time"`
	AverageQueueWait  time.Duration `json:"average_queue_wait"`
	P99QueueWait      time.Duration `json:"p99_queue_wait"`
	Elapsed           time.Duration `json:"elapsed"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Submitted:         m.Submitted(),
		Completed:         m.Completed(),
		Throughput:        m.Throughput(),
		OverallThroughput: m.OverallThroughput(),
		AverageRunTime:    m.AverageRunTime(),
		P99RunTime:        m.P99RunTime(),
		AverageQueueWait:  m.AverageQueueWait(),
		P99QueueWait:      m.P99QueueWait(),
		Elapsed:           time.Since(m.startTime),
	}
}
