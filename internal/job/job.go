package job

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNilBody          = errors.New("job: nil body")
	ErrNotPending       = errors.New("job: body can only be replaced while pending")
	ErrAlreadySubmitted = errors.New("job: already submitted")
	ErrAlreadyExecuted  = errors.New("job: already executed")
	ErrNotSubmitted     = errors.New("job: waiting on a job that was never submitted")
)

// State はジョブの状態を表す
type State int32

const (
	StatePending State = iota
	StateQueued
	StateExecuting
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateQueued:
		return "Queued"
	case StateExecuting:
		return "Executing"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Job は本体関数と完了シグナルの組
type Job struct {
	id   string
	done chan struct{}

	mu          sync.Mutex
	body        func()
	state       State
	submittedAt time.Time
	startedAt   time.Time
	finishedAt  time.Time
}

// New は新しいジョブを作成する
// body が nil の場合は ErrNilBody で panic する
func New(body func()) *Job {
	if body == nil {
		panic(ErrNilBody)
	}
	return &Job{
		id:   uuid.NewString(),
		done: make(chan struct{}),
		body: body,
	}
}

// ID はジョブの識別子を返す
func (j *Job) ID() string {
	return j.id
}

// State は現在の状態を返す
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Assign は実行前のジョブの本体を差し替える
func (j *Job) Assign(body func()) error {
	if body == nil {
		return ErrNilBody
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != StatePending {
		return ErrNotPending
	}
	j.body = body
	return nil
}

// MarkQueued はジョブをキュー投入済みにする
// プールが投入時に一度だけ呼び出す
func (j *Job) MarkQueued() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != StatePending {
		return ErrAlreadySubmitted
	}
	j.state = StateQueued
	j.submittedAt = time.Now()
	return nil
}

// Execute は本体を同期的に実行し、完了シグナルを発火する
func (j *Job) Execute() error {
	return j.Run(nil)
}

// Run は Execute と同じだが、実行権を得た直後・本体の前に onStart を呼ぶ
// 実行済みのジョブでは onStart は呼ばれない
func (j *Job) Run(onStart func()) error {
	j.mu.Lock()
	if j.state != StatePending && j.state != StateQueued {
		j.mu.Unlock()
		return ErrAlreadyExecuted
	}
	j.state = StateExecuting
	j.startedAt = time.Now()
	body := j.body
	j.mu.Unlock()

	if onStart != nil {
		onStart()
	}
	body()

	j.mu.Lock()
	j.state = StateCompleted
	j.finishedAt = time.Now()
	j.mu.Unlock()

	close(j.done)
	return nil
}

// Wait は完了シグナルが発火するまでブロックする
// 投入済みかどうかは呼び出し時点で判定する。投入も実行もされていなければ
// 後から投入されるとしても ErrNotSubmitted を返すので、Wait は Submit の
// 完了後に呼び出すこと
func (j *Job) Wait() error {
	if j.State() == StatePending {
		return ErrNotSubmitted
	}
	<-j.done
	return nil
}

// Done は完了時に close されるチャネルを返す
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// SubmittedAt はキュー投入時刻を返す
func (j *Job) SubmittedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.submittedAt
}

// StartedAt は実行開始時刻を返す
func (j *Job) StartedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.startedAt
}

// FinishedAt は実行完了時刻を返す
func (j *Job) FinishedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finishedAt
}

// QueueWait はキュー投入から実行開始までの時間を返す
func (j *Job) QueueWait() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.submittedAt.IsZero() || j.startedAt.IsZero() {
		return 0
	}
	return j.startedAt.Sub(j.submittedAt)
}

// RunTime は本体の実行時間を返す
func (j *Job) RunTime() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.startedAt.IsZero() || j.finishedAt.IsZero() {
		return 0
	}
	return j.finishedAt.Sub(j.startedAt)
}
