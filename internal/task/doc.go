// Package task runs the background jobs that enrich journal entries.
//
// A TaskRunner owns one TaskQueue and one WorkerPool per job type. Submitting a
// job never blocks; the queue is FIFO and the pool bounds how many jobs of a
// type run at once. Failed attempts are retried by a timer that submits a fresh
// job after a fixed delay, so a waiting retry never occupies a worker.
//
// AnalysisTask and ImageTask implement the per-entry state machine:
//
//	pending -> processing -> completed
//	                      -> processing (retry, after delay)
//	                      -> failed (attempts exhausted)
package task
