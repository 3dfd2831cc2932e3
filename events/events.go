// Package events provides the lifecycle event stream the runner publishes and
// reporting collaborators consume.
package events

import (
	"time"

	"github.com/katalab/kata-runner/types"
)

// Name identifies a lifecycle event topic
type Name string

// Lifecycle event names
const (
	RunBegin   Name = "start"
	RunEnd     Name = "end"
	SuiteBegin Name = "suite"
	SuiteEnd   Name = "suite end"
	TestBegin  Name = "test"
	TestEnd    Name = "test end"
	TestPass   Name = "pass"
	TestFail   Name = "fail"
	TestPend   Name = "pending"
	TestRetry  Name = "retry"
	HookBegin  Name = "hook"
	HookEnd    Name = "hook end"
	DelayBegin Name = "waiting"
	DelayEnd   Name = "ready"
)

// String implements the Stringer interface for Name
func (n Name) String() string {
	return string(n)
}

// Event is a single notification on the stream. Only the fields relevant to
// the event name are set.
type Event struct {
	Name     Name
	Time     time.Time
	RunID    string
	Suite    *types.Suite
	Runnable *types.Runnable
	Err      error
	// Stack is the filtered stack trace of Err, when one was captured
	Stack    string
	Total    int
	Failures int
}
