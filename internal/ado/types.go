package ado

// PatchOp is a single JSON-patch field assignment on a work item.
// Order within a patch document matters: the service applies ops
// sequentially and later ops may depend on earlier ones.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Add returns an "add" patch op assigning value to the named field.
func Add(field string, value any) PatchOp {
	return PatchOp{Op: "add", Path: "/fields/" + field, Value: value}
}

// WorkItem is a tracked item in the work-tracking service. Fields is a
// flat map keyed by field reference name (e.g., "System.Title").
type WorkItem struct {
	ID     int            `json:"id"`
	Rev    int            `json:"rev"`
	Fields map[string]any `json:"fields"`
	URL    string         `json:"url"`
}

// StringField returns the named field's value as a string, or the empty
// string when the field is absent or not textual.
func (w *WorkItem) StringField(name string) string {
	s, _ := w.Fields[name].(string)
	return s
}

// WorkItemBatch is the result of a multi-id fetch. An empty batch is a
// valid, non-error result.
type WorkItemBatch struct {
	Count int        `json:"count"`
	Value []WorkItem `json:"value"`
}

// WorkItemsBatchRequest is the body of a batched multi-id fetch.
type WorkItemsBatchRequest struct {
	IDs    []int    `json:"ids"`
	Fields []string `json:"fields,omitempty"`
}

// WorkItemField is a field definition on the tracking service. Custom
// fields must exist before a work item can reference them.
type WorkItemField struct {
	Name          string `json:"name"`
	ReferenceName string `json:"referenceName"`
	Description   string `json:"description,omitempty"`
	Type          string `json:"type"`
	Usage         string `json:"usage,omitempty"`
	ReadOnly      bool   `json:"readOnly"`
	URL           string `json:"url,omitempty"`
}

// WorkItemReference is a lightweight id/url pair returned by queries.
type WorkItemReference struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// WiqlRequest carries a textual query expression to the query endpoint.
type WiqlRequest struct {
	Query string `json:"query"`
}

// QueryResult holds the references matched by a query expression.
type QueryResult struct {
	QueryType       string              `json:"queryType"`
	QueryResultType string              `json:"queryResultType"`
	WorkItems       []WorkItemReference `json:"workItems"`
}
