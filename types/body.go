package types

import (
	"context"
	"time"
)

// Done is the completion callback handed to callback-style bodies
type Done func(err error)

// Body is the executable part of a runnable. A body signals completion in one
// of three ways: by returning, by calling Done, or by yielding on a channel.
type Body struct {
	sync     func(*Context) error
	callback func(*Context, Done)
	future   func(*Context) <-chan error
}

// Sync creates a body that completes when fn returns
func Sync(fn func(*Context) error) Body {
	return Body{sync: fn}
}

// Callback creates a body that completes when fn calls done
func Callback(fn func(*Context, Done)) Body {
	return Body{callback: fn}
}

// Future creates a body that completes when the returned channel yields or
// is closed. A nil channel completes immediately.
func Future(fn func(*Context) <-chan error) Body {
	return Body{future: fn}
}

// Func is a shorthand for a synchronous body that ignores its context
func Func(fn func() error) Body {
	return Sync(func(*Context) error { return fn() })
}

// IsZero reports whether the body has no function attached
func (b Body) IsZero() bool {
	return b.sync == nil && b.callback == nil && b.future == nil
}

// IsAsync reports whether the body signals completion asynchronously
func (b Body) IsAsync() bool {
	return b.callback != nil || b.future != nil
}

// Context is what a body sees of the runnable executing it
type Context struct {
	context.Context
	runnable *Runnable
}

// Runnable returns the runnable being executed
func (c *Context) Runnable() *Runnable {
	return c.runnable
}

// CurrentTest returns the test a hook is running for, or the runnable itself
// when it is a test.
func (c *Context) CurrentTest() *Runnable {
	if c.runnable.Kind == KindTest {
		return c.runnable
	}
	return c.runnable.current
}

// SetTimeout changes the timeout of the running runnable and restarts its timer
func (c *Context) SetTimeout(d time.Duration) {
	c.runnable.resetTimeout(d)
}

// Retries changes the retry budget of the running test
func (c *Context) Retries(n int) {
	c.runnable.Retries = n
}

// Skip aborts the body with the conditional-skip signal. It must be called
// from the body's own goroutine; asynchronous bodies report Skip(msg) instead.
func (c *Context) Skip(msg string) {
	panic(&Pending{Message: msg})
}
