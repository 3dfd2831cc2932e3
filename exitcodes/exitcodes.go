// Package exitcodes defines the process exit codes of kata-runner.
package exitcodes

// Exit code constants used by kata-runner in run-once mode:
//
// * Success (0): every selected exercise passed
// * TestFailure (1): the run finished with failing tests or hooks
// * RuntimeErr (2): configuration problems, unknown exercises, panics or engine errors
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors
)
