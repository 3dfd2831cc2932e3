package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/katalab/kata-runner/events"
)

// EventRecord is one line of the lifecycle event log
type EventRecord struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	RunID   string    `json:"RunID"`
	Suite   string    `json:"Suite,omitempty"`
	Test    string    `json:"Test,omitempty"`
	Kind    string    `json:"Kind,omitempty"`
	Attempt int       `json:"Attempt,omitempty"`
	State   string    `json:"State,omitempty"`
	Error   string    `json:"Error,omitempty"`
	Elapsed float64   `json:"Elapsed,omitempty"`
	Total   int       `json:"Total,omitempty"`
	Failed  int       `json:"Failures,omitempty"`
}

// EventsSink writes every lifecycle event as a JSON line to events.jsonl
type EventsSink struct {
	logger *FileLogger
}

// Write appends one event record
func (s *EventsSink) Write(e events.Event) error {
	writer, err := s.logger.getAsyncWriter(s.logger.GetEventsFile())
	if err != nil {
		return err
	}
	line, err := json.Marshal(NewEventRecord(e))
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", e.Name, err)
	}
	return writer.Write(append(line, '\n'))
}

// NewEventRecord flattens an event into its log record
func NewEventRecord(e events.Event) EventRecord {
	rec := EventRecord{
		Time:   e.Time,
		Action: string(e.Name),
		RunID:  e.RunID,
		Total:  e.Total,
		Failed: e.Failures,
	}
	if e.Suite != nil {
		rec.Suite = suiteTitle(e.Suite)
	}
	if rn := e.Runnable; rn != nil {
		rec.Kind = rn.Kind.String()
		rec.Attempt = rn.CurrentRetry()
		if rn.Kind.IsHook() {
			rec.Test = rn.DisplayTitle()
		} else {
			rec.Test = rn.FullTitle()
		}
		if e.Name == events.TestEnd || e.Name == events.HookEnd {
			rec.State = rn.State.String()
			rec.Elapsed = rn.Duration.Seconds()
		}
	}
	if e.Err != nil {
		rec.Error = stripansi.Strip(e.Err.Error())
	}
	return rec
}

// ReadEventRecords decodes an events.jsonl stream
func ReadEventRecords(r io.Reader) ([]EventRecord, error) {
	var out []EventRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec EventRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode event record: %w", err)
		}
		out = append(out, rec)
	}
	return out, scanner.Err()
}

// ReadEventsFile decodes the event log at path
func ReadEventsFile(path string) ([]EventRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open events file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return ReadEventRecords(f)
}
