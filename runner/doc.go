// Package runner provides the scheduler that executes a suite tree.
//
// The main pieces are:
//   - Runner: walks the tree on a single goroutine, sequencing hooks and tests
//     and publishing the lifecycle event stream
//   - Options: per-run policy (delay, dry run, retries, timeouts, leak checks)
//   - the fault mailbox: collects uncaught faults and late completion errors
//     raised on other goroutines and hands them to the scheduler
//
// Bodies run on their own goroutines but never in parallel with one another;
// the scheduler waits for each completion before starting the next runnable.
package runner
