// Package classifier runs camera frames through every loaded model on a
// single background goroutine.
//
// Producers call Submit from any goroutine; jobs wait in an unbounded FIFO
// queue and are processed one at a time. The consumer polls for work with a
// bounded wait and checks for shutdown whenever a wait times out, so queued
// jobs are always drained before the goroutine exits. The aggregated result
// of the most recent job is published as an immutable map and can be read at
// any time without touching the queue.
package classifier
