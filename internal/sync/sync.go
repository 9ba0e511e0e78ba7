// Package sync projects analysis issues onto work items in the
// work-tracking service.
package sync

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nvu/scansync/internal/ado"
	"github.com/nvu/scansync/internal/model"
	"github.com/nvu/scansync/internal/oplog"
	"github.com/nvu/scansync/internal/patch"
)

// witArea is the REST area all work item tracking resources live under.
const witArea = "wit"

// QueryCondition is one {field, operator, value} triple; conditions are
// combined conjunctively into a query expression. The value is rendered
// verbatim, so string literals must arrive pre-quoted.
type QueryCondition struct {
	Field    string
	Operator string
	Value    string
}

// Synchronizer exposes the work item operations the sync run composes:
// create, update, batched get, query, and lazy field provisioning.
//
// Every operation runs under a fresh correlation id: intent is logged
// before the call and full failure detail (including the service
// response body when present) after it. Errors are returned to the
// caller; a caller iterating many issues is expected to treat a failed
// operation as "skipped, logged" and continue, while FieldEnsure relies
// on observing a NotFoundError as a distinct condition.
type Synchronizer struct {
	client *ado.Client
	scopes *ado.ScopeResolver
	log    zerolog.Logger
}

// New creates a Synchronizer on top of the given client.
func New(client *ado.Client, log zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		client: client,
		scopes: ado.NewScopeResolver(client),
		log:    log,
	}
}

// Create builds a patch document for the issue and creates a new typed
// work item from it. Create always creates: de-duplication is the
// caller's composition of Query and Create/Update.
func (s *Synchronizer) Create(
	ctx context.Context,
	workItemType string,
	issue model.AnalysisIssue,
	component string,
	buildVersion string,
) (*ado.WorkItem, error) {
	log := oplog.Start(s.log, "workitem.create")

	ops := patch.Build(issue, component, buildVersion)
	u := s.client.ProjectURL(witArea, "workitems/$"+workItemType)

	var item ado.WorkItem
	if err := s.client.Patch(ctx, u, ops, &item); err != nil {
		oplog.Fail(log, err)
		return nil, err
	}

	log.Debug().Int("work_item_id", item.ID).Msg("work item created")
	return &item, nil
}

// Update applies the given patch ops to an existing work item.
func (s *Synchronizer) Update(
	ctx context.Context,
	id int,
	ops ...ado.PatchOp,
) (*ado.WorkItem, error) {
	log := oplog.Start(s.log, "workitem.update")

	u := s.client.ProjectURL(witArea, "workitems/"+strconv.Itoa(id))

	var item ado.WorkItem
	if err := s.client.Patch(ctx, u, ops, &item); err != nil {
		oplog.Fail(log, err)
		return nil, err
	}

	log.Debug().Int("work_item_id", item.ID).Msg("work item updated")
	return &item, nil
}

// Get fetches the named fields of the given work items in a single
// batched request, never one request per id. Zero ids is not an error:
// it short-circuits to an empty batch without touching the network.
func (s *Synchronizer) Get(
	ctx context.Context,
	fields []string,
	ids ...int,
) (*ado.WorkItemBatch, error) {
	log := oplog.Start(s.log, "workitem.get")

	if len(ids) == 0 {
		return &ado.WorkItemBatch{Count: 0, Value: []ado.WorkItem{}}, nil
	}

	u := s.client.ProjectURL(witArea, "workitemsbatch")
	req := ado.WorkItemsBatchRequest{IDs: ids, Fields: fields}

	var batch ado.WorkItemBatch
	if err := s.client.Post(ctx, u, req, &batch); err != nil {
		oplog.Fail(log, err)
		return nil, err
	}

	log.Debug().Int("count", batch.Count).Msg("work items fetched")
	return &batch, nil
}

// Query builds a single query expression from the fields and conditions
// and posts it to the query endpoint.
func (s *Synchronizer) Query(
	ctx context.Context,
	fields []string,
	conditions []QueryCondition,
) (*ado.QueryResult, error) {
	log := oplog.Start(s.log, "workitem.query")

	u := s.client.ProjectURL(witArea, "wiql")
	req := ado.WiqlRequest{Query: buildQuery(fields, conditions)}

	var result ado.QueryResult
	if err := s.client.Post(ctx, u, req, &result); err != nil {
		oplog.Fail(log, err)
		return nil, err
	}

	log.Debug().Int("matches", len(result.WorkItems)).Msg("query completed")
	return &result, nil
}

// FieldGet looks up a field definition by name. Fields may be defined
// at project or collection scope; the scope resolver issues both
// lookups and applies project-first precedence. A 404 from the winning
// scope is reported as a NotFoundError so callers can distinguish
// absence from transport failure.
func (s *Synchronizer) FieldGet(
	ctx context.Context,
	name string,
) (*ado.WorkItemField, error) {
	log := oplog.Start(s.log, "field.get")

	var field ado.WorkItemField
	err := s.scopes.Get(ctx, witArea, "fields/"+name, &field)
	if err != nil {
		if isStatus(err, 404) {
			err = &ado.NotFoundError{Resource: "field " + name, Err: err}
		}
		oplog.Fail(log, err)
		return nil, err
	}

	return &field, nil
}

// FieldCreate provisions a new field definition.
func (s *Synchronizer) FieldCreate(
	ctx context.Context,
	field ado.WorkItemField,
) (*ado.WorkItemField, error) {
	log := oplog.Start(s.log, "field.create")

	u := s.client.ProjectURL(witArea, "fields")

	var created ado.WorkItemField
	if err := s.client.Post(ctx, u, field, &created); err != nil {
		oplog.Fail(log, err)
		return nil, err
	}

	log.Debug().Str("field", created.ReferenceName).Msg("field created")
	return &created, nil
}

// FieldEnsure returns the named field, creating it from factory when it
// does not exist yet. Only a NotFoundError from the lookup triggers
// creation; any other failure propagates so a field is never created
// speculatively after an unrelated transport error. Repeated and
// concurrent calls are safe: an existing field is returned as is and
// never re-created, and when a concurrent caller wins the create the
// conflict resolves to a second lookup of the now-existing field.
func (s *Synchronizer) FieldEnsure(
	ctx context.Context,
	name string,
	factory func() ado.WorkItemField,
) (*ado.WorkItemField, error) {
	field, err := s.FieldGet(ctx, name)
	if err == nil {
		return field, nil
	}
	if !ado.IsNotFound(err) {
		return nil, err
	}

	created, err := s.FieldCreate(ctx, factory())
	if isStatus(err, 409) {
		// Someone else created the field between our lookup and create.
		return s.FieldGet(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// QuoteString renders s as a single-quoted query string literal.
// Condition values are passed into the expression verbatim, so string
// values must be quoted by the caller.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// buildQuery renders the textual query expression: bracket-quoted field
// names, conditions joined with AND, values verbatim.
func buildQuery(fields []string, conditions []QueryCondition) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = "[" + f + "]"
	}

	var b strings.Builder
	b.WriteString("Select ")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(" From WorkItems")

	if len(conditions) > 0 {
		b.WriteString(" Where ")
		for i, c := range conditions {
			if i > 0 {
				b.WriteString(" AND ")
			}
			b.WriteString("[" + c.Field + "] " + c.Operator + " " + c.Value)
		}
	}

	return b.String()
}

// isStatus reports whether err carries the given HTTP status code.
func isStatus(err error, code int) bool {
	var reqErr *ado.RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == code
}
