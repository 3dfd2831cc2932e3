package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/katalab/kata-runner/reporting"
	"github.com/katalab/kata-runner/types"
)

const (
	HTMLFilename     = "results.html"
	htmlTemplateName = "results.html.tmpl"
)

// htmlRow is one line of the results table, a suite heading or a test
type htmlRow struct {
	Suite    bool
	Title    string
	Depth    int
	State    types.State
	Duration time.Duration
	Retries  int
	Error    string
	LogPath  string
}

type htmlPage struct {
	RunID  string
	Stats  reporting.Stats
	Rows   []htmlRow
	Depths []int
}

// HTMLSink renders results.html from the final report, linking every test
// to the log file of its last attempt
type HTMLSink struct {
	logger *FileLogger
}

// Consume is a no-op; the page is built from the final report
func (s *HTMLSink) Consume(*TestResult, string) error {
	return nil
}

// Complete writes results.html
func (s *HTMLSink) Complete(report *reporting.Report) error {
	tmpl, err := GetHTMLTemplate(htmlTemplateName)
	if err != nil {
		return fmt.Errorf("failed to load HTML template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, buildHTMLPage(report)); err != nil {
		return fmt.Errorf("failed to format HTML: %w", err)
	}
	if err := os.WriteFile(s.logger.GetHTMLFile(), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	return nil
}

func buildHTMLPage(report *reporting.Report) htmlPage {
	page := htmlPage{RunID: report.RunID, Stats: report.Stats}
	if report.Root == nil {
		return page
	}

	maxDepth := 0
	report.Root.Walk(func(node *reporting.SuiteNode, depth int) {
		testDepth := depth
		if node.Title != "" {
			page.Rows = append(page.Rows, htmlRow{Suite: true, Title: node.Title, Depth: depth})
			testDepth++
		}
		for _, test := range node.Tests {
			row := htmlRow{
				Title:    test.Title,
				Depth:    testDepth,
				State:    test.State,
				Duration: test.Duration,
				Retries:  test.Retries,
				LogPath:  testLogPath(test),
			}
			if test.Err != nil {
				row.Error = stripansi.Strip(test.Err.Error())
			}
			page.Rows = append(page.Rows, row)
		}
		maxDepth = max(maxDepth, testDepth)
	})
	for i := 0; i <= maxDepth; i++ {
		page.Depths = append(page.Depths, i)
	}
	return page
}

// testLogPath returns the log of the last attempt relative to the run
// directory. Pending tests have no log.
func testLogPath(test *reporting.TestRecord) string {
	var dir string
	switch test.State {
	case types.StatePassed:
		dir = PassedDirname
	case types.StateFailed:
		dir = FailedDirname
	default:
		return ""
	}
	name := testFilename(&TestResult{ID: test.ID, FullTitle: test.FullTitle, Attempt: test.Retries})
	return filepath.ToSlash(filepath.Join(dir, name+".log"))
}
