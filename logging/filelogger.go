package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/katalab/kata-runner/events"
	"github.com/katalab/kata-runner/reporting"
	"github.com/katalab/kata-runner/types"
)

const (
	RunDirectoryPrefix = "testrun-"
	SummaryFilename    = "summary.log"
	AllLogsFilename    = "all.log"
	EventsFilename     = "events.jsonl"
	ResultsFilename    = "results.json"
	PassedDirname      = "passed"
	FailedDirname      = "failed"
)

// TestResult is the outcome of one test attempt as written to the log files
type TestResult struct {
	ID        string
	Title     string
	FullTitle string
	Suite     string
	State     types.State
	Attempt   int
	Retried   bool
	Duration  time.Duration
	Err       error
	Stack     string
	TimedOut  bool
}

// ResultSink is an interface for different ways of consuming test results
type ResultSink interface {
	// Consume processes a single test attempt
	Consume(result *TestResult, runID string) error
	// Complete is called with the final report once the run has ended
	Complete(report *reporting.Report) error
}

// FileLogger writes the outcome of a run into its own run directory
type FileLogger struct {
	baseDir      string
	logDir       string
	runID        string
	mu           sync.Mutex
	sinks        []ResultSink
	events       *EventsSink
	asyncWriters map[string]*AsyncFile
	collector    *reporting.Collector

	// per-run state fed from the event stream
	stacks  map[*types.Runnable]string
	retried map[*types.Runnable]bool
	errs    []error
	done    chan struct{}
}

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewAsyncFile creates a new AsyncFile for non-blocking writes
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100),
	}
	af.wg.Add(1)
	go af.processQueue()
	return af, nil
}

// Write queues data to be written asynchronously
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return errors.New("async file is closed")
	}
	af.queue <- append([]byte(nil), data...)
	return nil
}

func (af *AsyncFile) processQueue() {
	defer af.wg.Done()
	for data := range af.queue {
		if _, err := af.file.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to file: %v\n", err)
		}
	}
}

// Close stops the async writer and closes the file
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	af.wg.Wait()
	return af.file.Close()
}

// NewFileLogger creates the run directory for runID under baseDir
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, errors.New("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, errors.New("baseDir cannot be empty")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	for _, dir := range []string{
		baseDir,
		logDir,
		filepath.Join(logDir, FailedDirname),
		filepath.Join(logDir, PassedDirname),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	l := &FileLogger{
		baseDir:      baseDir,
		logDir:       logDir,
		runID:        runID,
		asyncWriters: make(map[string]*AsyncFile),
		collector:    reporting.NewCollector(),
		stacks:       make(map[*types.Runnable]string),
		retried:      make(map[*types.Runnable]bool),
		done:         make(chan struct{}),
	}
	l.events = &EventsSink{logger: l}
	l.sinks = []ResultSink{
		&AllLogsFileSink{logger: l},
		&PerTestFileSink{logger: l, processed: make(map[string]bool)},
		&SummarySink{logger: l},
		&ResultsJSONSink{logger: l},
		&HTMLSink{logger: l},
	}
	return l, nil
}

// Attach feeds the logger from bus. Everything is flushed to disk when the
// run-end event arrives; Wait blocks until then.
func (l *FileLogger) Attach(bus *events.Bus) func() {
	unsubs := []func(){
		l.collector.Attach(bus),
		bus.SubscribeAll(l.handle),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (l *FileLogger) handle(e events.Event) {
	select {
	case <-l.done:
		// the run directory is closed
		return
	default:
	}

	if err := l.events.Write(e); err != nil {
		l.recordErr(err)
	}

	switch e.Name {
	case events.TestFail:
		if e.Runnable != nil && e.Stack != "" {
			l.mu.Lock()
			l.stacks[e.Runnable] = e.Stack
			l.mu.Unlock()
		}
	case events.TestRetry:
		l.mu.Lock()
		l.retried[e.Runnable] = true
		l.mu.Unlock()
	case events.TestEnd:
		if err := l.LogTestResult(l.resultOf(e)); err != nil {
			l.recordErr(err)
		}
	case events.RunEnd:
		if err := l.Complete(l.collector.Report()); err != nil {
			l.recordErr(err)
		}
		close(l.done)
	}
}

func (l *FileLogger) resultOf(e events.Event) *TestResult {
	rn := e.Runnable
	l.mu.Lock()
	stack := l.stacks[rn]
	retried := l.retried[rn]
	l.mu.Unlock()

	var timeout *types.TimeoutError
	return &TestResult{
		ID:        rn.ID,
		Title:     rn.Title,
		FullTitle: rn.FullTitle(),
		Suite:     suiteTitle(rn.Parent),
		State:     rn.State,
		Attempt:   rn.CurrentRetry(),
		Retried:   retried,
		Duration:  rn.Duration,
		Err:       rn.Err,
		Stack:     stack,
		TimedOut:  errors.As(rn.Err, &timeout),
	}
}

func (l *FileLogger) recordErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

// Wait blocks until the run-end event was written and returns every error
// the sinks reported while handling the run.
func (l *FileLogger) Wait() error {
	<-l.done
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Join(l.errs...)
}

// getAsyncWriter gets or creates an AsyncFile for the given path
func (l *FileLogger) getAsyncWriter(path string) (*AsyncFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if writer, exists := l.asyncWriters[path]; exists {
		return writer, nil
	}
	writer, err := NewAsyncFile(path)
	if err != nil {
		return nil, err
	}
	l.asyncWriters[path] = writer
	return writer, nil
}

func (l *FileLogger) closeAllWriters() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, writer := range l.asyncWriters {
		_ = writer.Close()
	}
	l.asyncWriters = make(map[string]*AsyncFile)
}

// LogTestResult processes a test attempt through all registered sinks
func (l *FileLogger) LogTestResult(result *TestResult) error {
	for _, sink := range l.sinks {
		if err := sink.Consume(result, l.runID); err != nil {
			return fmt.Errorf("error in sink: %w", err)
		}
	}
	return nil
}

// Complete finalizes all sinks and closes all file writers
func (l *FileLogger) Complete(report *reporting.Report) error {
	var errs []error
	for _, sink := range l.sinks {
		if err := sink.Complete(report); err != nil {
			errs = append(errs, fmt.Errorf("error completing sink: %w", err))
		}
	}
	l.closeAllWriters()
	return errors.Join(errs...)
}

// GetRunID returns the run this logger writes
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// GetDirectory returns the run directory
func (l *FileLogger) GetDirectory() string {
	return l.logDir
}

// GetFailedDir returns the directory containing logs for failed tests
func (l *FileLogger) GetFailedDir() string {
	return filepath.Join(l.logDir, FailedDirname)
}

// GetPassedDir returns the directory containing logs for passed tests
func (l *FileLogger) GetPassedDir() string {
	return filepath.Join(l.logDir, PassedDirname)
}

// GetSummaryFile returns the path to the summary file
func (l *FileLogger) GetSummaryFile() string {
	return filepath.Join(l.logDir, SummaryFilename)
}

// GetAllLogsFile returns the path to the all logs file
func (l *FileLogger) GetAllLogsFile() string {
	return filepath.Join(l.logDir, AllLogsFilename)
}

// GetEventsFile returns the path to the lifecycle event log
func (l *FileLogger) GetEventsFile() string {
	return filepath.Join(l.logDir, EventsFilename)
}

// GetResultsFile returns the path to the JSON results document
func (l *FileLogger) GetResultsFile() string {
	return filepath.Join(l.logDir, ResultsFilename)
}

// GetHTMLFile returns the path to the HTML results page
func (l *FileLogger) GetHTMLFile() string {
	return filepath.Join(l.logDir, HTMLFilename)
}

// safeFilename converts a string to a safe filename by replacing problematic characters
func safeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	return strings.ReplaceAll(replacer.Replace(s), "...", "")
}

// testFilename builds a readable filename for a test attempt
func testFilename(result *TestResult) string {
	name := result.FullTitle
	if name == "" {
		name = result.ID
	}
	if result.Attempt > 0 {
		name = fmt.Sprintf("%s_attempt%d", name, result.Attempt+1)
	}
	return safeFilename(name)
}

func suiteTitle(s *types.Suite) string {
	if s == nil {
		return ""
	}
	if title := s.FullTitle(); title != "" {
		return title
	}
	return "{root}"
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
