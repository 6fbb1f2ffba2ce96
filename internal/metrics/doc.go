// Package metrics collects job execution statistics for a pool.
//
// Metrics counts submitted and completed jobs and records how long each job
// waited in the queue and how long its body ran. Averages use atomic
// counters; P99 values are computed from a bounded sample buffer.
//
// # Basic Usage
//
//	m := metrics.New()
//	p, _ := pool.New(4, pool.WithMetrics(m))
//
//	// ... submit and wait ...
//
//	snap := m.Snapshot()
//	fmt.Printf("Completed: %d, avg run: %v, P99 wait: %v\n",
//	    snap.Completed, snap.AverageRunTime, snap.P99QueueWait)
//
// # Configuration
//
//	m := metrics.NewWithConfig(metrics.Config{
//	    MaxLatencySamples: 5000,
//	})
//
// # Thread Safety
//
// All operations are safe for concurrent access.
package metrics
