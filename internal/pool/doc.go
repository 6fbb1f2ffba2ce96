// Package pool provides a fixed-size worker pool with a shared FIFO queue.
//
// A Pool owns a fixed number of worker goroutines that take jobs from one
// unbounded queue guarded by a mutex and a condition variable. Submitters
// keep their *job.Job and call Wait on it to block until the body has run.
//
// # Basic Usage
//
//	p, err := pool.New(8)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	results := make([]int, 16)
//	jobs := make([]*job.Job, 0, len(results))
//	for i := range results {
//	    j := job.New(func() { results[i] = sum(i) })
//	    if err := p.Submit(j); err != nil {
//	        return err
//	    }
//	    jobs = append(jobs, j)
//	}
//	for _, j := range jobs {
//	    _ = j.Wait()
//	}
//
// # Ordering
//
// Jobs are dequeued in submission order. Once more than one worker is active
// nothing is guaranteed about the order in which jobs complete.
//
// # Shutdown
//
// Close stops the pool and joins every worker. What happens to jobs still in
// the queue depends on the Policy:
//
//   - PolicyDrain (default): workers keep running queued jobs until the queue
//     is empty. Every job submitted before Close has completed when Close
//     returns.
//   - PolicyHardStop: a worker that sees the stop request exits without taking
//     another job. Jobs left in the queue are never run and waiting on them
//     blocks forever; Close logs how many were discarded.
//
// A pool with zero workers is legal. Its jobs are never run.
//
// # Failures
//
// A panicking job body is logged and re-raised on the worker goroutine,
// which terminates the process.
package pool
