// Package main is the sample driver for the thread pool.
//
// It submits one job per input index, each computing the sum 0..i after a
// random sleep, keeps the job handles, waits on all of them and prints the
// results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/wheberth/cppthreadpool/internal/api"
	"github.com/wheberth/cppthreadpool/internal/config"
	"github.com/wheberth/cppthreadpool/internal/events"
	"github.com/wheberth/cppthreadpool/internal/job"
	"github.com/wheberth/cppthreadpool/internal/logger"
	"github.com/wheberth/cppthreadpool/internal/metrics"
	"github.com/wheberth/cppthreadpool/internal/pool"
)

var (
	version = "dev"
)

var errNoWorkers = errors.New("pool has no workers: submitted jobs would never run")

func main() {
	// フラグ定義
	var (
		configFile  = flag.String("config", "", "設定ファイルパス (YAML/JSON)")
		threads     = flag.Int("threads", -1, "ワーカー数 (未指定なら設定ファイルの値)")
		jobs        = flag.Int("jobs", 0, "投入するジョブ数")
		maxSleep    = flag.Duration("max-sleep", 0, "ジョブ内のランダムスリープ上限 (例: 512ms)")
		policy      = flag.String("policy", "", "停止ポリシー (drain, hard-stop)")
		monitorAddr = flag.String("monitor", "", "モニタサーバーアドレス (例: :8080)")
		logLevel    = flag.String("log-level", "", "ログレベル (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "バージョンを表示")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `cppthreadpool - fixed-size worker pool demo

Usage:
  cppthreadpool [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # デフォルト (8 workers, 16 jobs)
  cppthreadpool

  # 設定ファイルから実行
  cppthreadpool --config pool.yaml

  # ワーカー数とジョブ数を指定
  cppthreadpool --threads 4 --jobs 64 --max-sleep 100ms

  # モニタを有効化
  cppthreadpool --monitor :8080
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("cppthreadpool version %s\n", version)
		return
	}

	settings, err := buildSettings(*configFile, *threads, *jobs, *maxSleep, *policy, *monitorAddr, *logLevel)
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}
	logger.Default.SetLevel(settings.LogLevel)

	if err := run(settings, os.Stdout); err != nil {
		logger.Error("", "実行エラー: %v", err)
		os.Exit(1)
	}
}

// buildSettings は設定ファイルとフラグから実行設定を構築する
func buildSettings(
	configFile string,
	threads, jobs int, maxSleep time.Duration,
	policy, monitorAddr, logLevel string,
) (config.Settings, error) {
	settings := config.DefaultSettings()

	if configFile != "" {
		fileConfig, err := config.LoadFile(configFile)
		if err != nil {
			return settings, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		if err := fileConfig.Validate(); err != nil {
			return settings, fmt.Errorf("設定検証エラー: %w", err)
		}
		settings, err = fileConfig.ToSettings()
		if err != nil {
			return settings, fmt.Errorf("設定変換エラー: %w", err)
		}
	}

	// フラグでオーバーライド
	if threads >= 0 {
		settings.Threads = threads
	}
	if jobs > 0 {
		settings.Jobs = jobs
	}
	if maxSleep > 0 {
		settings.MaxSleep = maxSleep
	}
	if policy != "" {
		p, err := pool.ParsePolicy(policy)
		if err != nil {
			return settings, err
		}
		settings.Policy = p
	}
	if monitorAddr != "" {
		settings.MonitorAddr = monitorAddr
	}
	if logLevel != "" {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return settings, err
		}
		settings.LogLevel = level
	}

	return settings, nil
}

// run はプールを作成してサンプルジョブを実行する
func run(settings config.Settings, out io.Writer) error {
	if settings.Threads == 0 && settings.Jobs > 0 {
		return errNoWorkers
	}

	m := metrics.NewWithConfig(metrics.Config{MaxLatencySamples: settings.MetricSamples})
	bus := events.NewBus()
	defer bus.Close()

	p, err := pool.New(settings.Threads,
		pool.WithPolicy(settings.Policy),
		pool.WithMetrics(m),
		pool.WithEvents(bus),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// 投入を打ち切り、投入済みのジョブはプールの停止ポリシーに任せる
	// 二度目のシグナルはデフォルト動作（即時終了）になる
	go func() {
		select {
		case <-sigCh:
			signal.Stop(sigCh)
			fmt.Fprintln(os.Stderr, "\n中断シグナルを受信、投入済みのジョブを待って終了中...")
			cancel()
		case <-ctx.Done():
		}
	}()

	var monitorDone chan struct{}
	if settings.MonitorAddr != "" {
		monitorDone = make(chan struct{})
		srv := api.NewServer(settings.MonitorAddr, p, m, bus)
		go func() {
			defer close(monitorDone)
			if err := srv.Start(ctx); err != nil {
				logger.Error("", "モニタエラー: %v", err)
			}
		}()
	}

	results, err := runJobs(ctx, p, settings.Jobs, settings.MaxSleep, out)
	p.Close()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, formatResults(results))

	snap := m.Snapshot()
	logger.Info("", "Completed %d jobs in %v (avg run %v, P99 queue wait %v)",
		snap.Completed, snap.Elapsed.Round(time.Millisecond), snap.AverageRunTime, snap.P99QueueWait)

	cancel()
	if monitorDone != nil {
		<-monitorDone
	}
	return nil
}

// runJobs は n 個のジョブを投入し、すべての完了を待って結果を返す
// ctx がキャンセルされると以降の投入をやめ、投入済みのジョブを待ってから
// ctx のエラーを返す
func runJobs(ctx context.Context, p *pool.Pool, n int, maxSleep time.Duration, out io.Writer) ([]int, error) {
	results := make([]int, n)
	handles := make([]*job.Job, 0, n)

	var outMu sync.Mutex
	for i := range n {
		if ctx.Err() != nil {
			break
		}
		j := job.New(func() {
			results[i] = sumTo(i)
			if maxSleep > 0 {
				time.Sleep(rand.N(maxSleep))
			}
			outMu.Lock()
			fmt.Fprintf(out, " Input : %d Output : %d\n", i, results[i])
			outMu.Unlock()
		})
		if err := p.Submit(j); err != nil {
			return nil, fmt.Errorf("submit job %d: %w", i, err)
		}
		handles = append(handles, j)
	}
	outMu.Lock()
	fmt.Fprintln(out, "All jobs submitted")
	outMu.Unlock()

	for _, j := range handles {
		if err := j.Wait(); err != nil {
			return nil, fmt.Errorf("wait job %s: %w", j.ID(), err)
		}
	}
	if len(handles) < n {
		return results[:len(handles)], fmt.Errorf("submitted %d of %d jobs: %w", len(handles), n, ctx.Err())
	}
	outMu.Lock()
	fmt.Fprintln(out, "All jobs finished")
	outMu.Unlock()

	return results, nil
}

// sumTo は 0..n の総和を返す
func sumTo(n int) int {
	sum := 0
	for i := 0; i <= n; i++ {
		sum += i
	}
	return sum
}

func formatResults(results []int) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprint(r)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
