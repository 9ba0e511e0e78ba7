// Package patch builds the ordered field-assignment documents that
// describe a work item for an analysis issue.
package patch

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/nvu/scansync/internal/ado"
	"github.com/nvu/scansync/internal/model"
	"github.com/nvu/scansync/internal/render"
)

// FingerprintField is the custom field that carries an issue's
// fingerprint on its work item. It is the durable de-duplication key
// across runs and must be provisioned before items referencing it are
// created.
const FingerprintField = "ScanSync.Fingerprint"

const (
	tagsField    = "System.Tags"
	titleField   = "System.Title"
	stateField   = "System.State"
	foundInField = "Microsoft.VSTS.Build.FoundIn"
	effortField  = "Microsoft.VSTS.Scheduling.Effort"
	reproField   = "Microsoft.VSTS.TCM.ReproSteps"

	// markerTag identifies work items managed by this tool.
	markerTag = "scansync"

	initialState = "New"
)

// FingerprintFieldDefinition returns the definition used to provision
// the fingerprint field when it does not exist yet.
func FingerprintFieldDefinition() ado.WorkItemField {
	return ado.WorkItemField{
		Name:          "Fingerprint",
		ReferenceName: FingerprintField,
		Description:   "Stable identifier correlating repeated scans to the same finding",
		Type:          "string",
		Usage:         "workItem",
	}
}

// Build produces the ordered patch document for a new work item from an
// analysis issue and its run context. The document always contains the
// same seven fields in the same order: fingerprint, tags, title, state,
// found-in, effort, and repro steps.
func Build(issue model.AnalysisIssue, component, buildVersion string) []ado.PatchOp {
	return []ado.PatchOp{
		ado.Add(FingerprintField, issue.Fingerprint),
		ado.Add(tagsField, Tags(issue)),
		ado.Add(titleField, Title(issue, component)),
		ado.Add(stateField, initialState),
		ado.Add(foundInField, foundIn(component, buildVersion)),
		ado.Add(effortField, strconv.Itoa(Effort(issue.RemediationPoints))),
		ado.Add(reproField, ReproSteps(issue)),
	}
}

// Refresh produces the patch document applied when an existing work
// item is seen again in a later scan. It re-stamps everything Build
// assigns except the fingerprint (already the lookup key) and the state
// (a re-detected item must not be reopened or reset by the sync).
func Refresh(issue model.AnalysisIssue, component, buildVersion string) []ado.PatchOp {
	return []ado.PatchOp{
		ado.Add(tagsField, Tags(issue)),
		ado.Add(titleField, Title(issue, component)),
		ado.Add(foundInField, foundIn(component, buildVersion)),
		ado.Add(effortField, strconv.Itoa(Effort(issue.RemediationPoints))),
		ado.Add(reproField, ReproSteps(issue)),
	}
}

// Tags joins the marker tag, the issue's categories, and its check name,
// order preserved.
func Tags(issue model.AnalysisIssue) string {
	tags := make([]string, 0, len(issue.Categories)+2)
	tags = append(tags, markerTag)
	tags = append(tags, issue.Categories...)
	tags = append(tags, issue.CheckName)
	return strings.Join(tags, ",")
}

// Title composes "<Check name> in <component> > <file path>", where the
// check name has dashes turned to spaces and only its first character
// capitalized.
func Title(issue model.AnalysisIssue, component string) string {
	name := capitalize(strings.ReplaceAll(issue.CheckName, "-", " "))
	return fmt.Sprintf("%s in %s > %s", name, component, issue.Location.Path)
}

// Effort converts remediation points to an effort estimate, clamped so
// it is never below 1. This is a clamp, not a rounding rule.
func Effort(remediationPoints int) int {
	effort := remediationPoints / 10000
	if effort < 1 {
		return 1
	}
	return effort
}

// ReproSteps concatenates the issue description, a generated ordered
// list pointing the reader at the file and line range, and the rendered
// markup body, each segment separated by a double line break.
func ReproSteps(issue model.AnalysisIssue) string {
	steps := fmt.Sprintf(
		"1. Open %s\n2. Observe lines %d-%d",
		issue.Location.Path,
		issue.Location.Lines.Begin,
		issue.Location.Lines.End,
	)
	return strings.Join(
		[]string{issue.Description, steps, render.Markdown(issue.Body())},
		"\n\n",
	)
}

// foundIn combines the owning component and the build version.
func foundIn(component, buildVersion string) string {
	return component + " " + buildVersion
}

// capitalize upper-cases the first rune of s only.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
