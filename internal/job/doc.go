// Package job provides the unit of work executed by a pool.
//
// A Job wraps a zero-argument function together with a one-shot completion
// signal. The submitter keeps the *Job after handing it to a pool and calls
// Wait to block until the body has returned.
//
// # Basic Usage
//
//	var out int
//	j := job.New(func() { out = compute() })
//	if err := p.Submit(j); err != nil {
//	    return err
//	}
//	if err := j.Wait(); err != nil {
//	    return err
//	}
//	fmt.Println(out) // visible: Wait happens after the body
//
// # Lifecycle
//
// Pending -> Queued -> Executing -> Completed. A job can be executed at most
// once; misuse (double execution, double submission, waiting on a job that
// was never submitted) is reported through sentinel errors.
//
// Wait must happen after Submit returns. A Wait that runs while the job is
// still Pending reports ErrNotSubmitted immediately, even if another
// goroutine submits the job a moment later.
package job
