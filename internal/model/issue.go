package model

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// AnalysisIssue is a single finding emitted by the analysis engine.
// Issues are produced once per scan and never mutated by the sync
// engine; the fingerprint is the durable de-duplication key that
// correlates repeated scans to the same tracked work item.
type AnalysisIssue struct {
	Type              string        `json:"type,omitempty"`
	CheckName         string        `json:"check_name"`
	Description       string        `json:"description"`
	Categories        []string      `json:"categories,omitempty"`
	Fingerprint       string        `json:"fingerprint"`
	RemediationPoints int           `json:"remediation_points"`
	Location          Location      `json:"location"`
	Content           *IssueContent `json:"content,omitempty"`
}

// Location identifies the file region a finding refers to.
type Location struct {
	Path  string    `json:"path"`
	Lines LineRange `json:"lines"`
}

// LineRange is an inclusive begin/end line span.
type LineRange struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// IssueContent carries the markup-formatted detail body of a finding.
type IssueContent struct {
	Body string `json:"body"`
}

// Body returns the markup detail body, or the empty string when the
// engine emitted no content section.
func (i AnalysisIssue) Body() string {
	if i.Content == nil {
		return ""
	}
	return i.Content.Body
}

// ReadIssues decodes analysis issues from r. Engines emit findings
// either as a JSON array or as a concatenated stream of JSON documents,
// so both forms are accepted. Records without a fingerprint are dropped
// rather than treated as errors, since engine output streams may
// interleave other record types with findings.
func ReadIssues(r io.Reader) ([]AnalysisIssue, error) {
	br := bufio.NewReader(r)

	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading issue stream: %w", err)
	}

	dec := json.NewDecoder(br)

	if first == '[' {
		var all []AnalysisIssue
		if err := dec.Decode(&all); err != nil {
			return nil, fmt.Errorf("decoding issue array: %w", err)
		}
		return keepFindings(all), nil
	}

	var issues []AnalysisIssue
	for {
		var issue AnalysisIssue
		err := dec.Decode(&issue)
		if errors.Is(err, io.EOF) {
			return issues, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding issue: %w", err)
		}
		if issue.Fingerprint != "" {
			issues = append(issues, issue)
		}
	}
}

// peekNonSpace returns the first byte of br that is not JSON whitespace
// without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}

// keepFindings filters out records that carry no fingerprint.
func keepFindings(all []AnalysisIssue) []AnalysisIssue {
	issues := make([]AnalysisIssue, 0, len(all))
	for _, issue := range all {
		if issue.Fingerprint != "" {
			issues = append(issues, issue)
		}
	}
	return issues
}
