package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const issueJSON = `{
	"type": "issue",
	"check_name": "unused-variable",
	"description": "Variable x is never used",
	"categories": ["Clarity"],
	"fingerprint": "0011aabb",
	"remediation_points": 50000,
	"location": {"path": "main.go", "lines": {"begin": 3, "end": 3}},
	"content": {"body": "Remove it."}
}`

func TestReadIssuesArrayForm(t *testing.T) {
	r := strings.NewReader("[" + issueJSON + "," + issueJSON + "]")

	issues, err := ReadIssues(r)

	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "unused-variable", issues[0].CheckName)
	assert.Equal(t, "0011aabb", issues[0].Fingerprint)
	assert.Equal(t, 3, issues[0].Location.Lines.Begin)
	assert.Equal(t, "Remove it.", issues[0].Body())
}

func TestReadIssuesStreamForm(t *testing.T) {
	r := strings.NewReader(issueJSON + "\n" + issueJSON + "\n")

	issues, err := ReadIssues(r)

	require.NoError(t, err)
	assert.Len(t, issues, 2)
}

func TestReadIssuesDropsRecordsWithoutFingerprint(t *testing.T) {
	r := strings.NewReader(issueJSON + "\n" + `{"type":"measurement","value":42}` + "\n")

	issues, err := ReadIssues(r)

	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestReadIssuesEmptyInput(t *testing.T) {
	issues, err := ReadIssues(strings.NewReader("  \n "))

	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestReadIssuesMalformedInput(t *testing.T) {
	_, err := ReadIssues(strings.NewReader(`{"check_name": "x",`))

	assert.Error(t, err)
}

func TestBodyWithoutContent(t *testing.T) {
	issue := AnalysisIssue{CheckName: "x"}

	assert.Equal(t, "", issue.Body())
}
