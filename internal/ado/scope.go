package ado

import (
	"context"
	"encoding/json"
	"fmt"
)

// ScopeResolver resolves a resource against the two REST scopes it may
// be defined at: project scope and collection scope. Some resources,
// notably custom field definitions, exist at either level and only one
// is authoritative at a time; project scope takes precedence when both
// respond successfully.
//
// Both requests are always issued concurrently and both are awaited
// before deciding. This is precedence, not a race: the slower request's
// latency is always paid.
type ScopeResolver struct {
	client *Client
}

// NewScopeResolver creates a resolver backed by the given client.
func NewScopeResolver(client *Client) *ScopeResolver {
	return &ScopeResolver{client: client}
}

// scopeResult is one scope's raw response or failure.
type scopeResult struct {
	body []byte
	err  error
}

// Get fetches area/resource from both scopes and unmarshals the winning
// response into out. If the project-scoped request succeeds its response
// is used; otherwise the collection-scoped outcome is returned, success
// or not.
func (r *ScopeResolver) Get(ctx context.Context, area, resource string, out any) error {
	projectCh := make(chan scopeResult, 1)
	collectionCh := make(chan scopeResult, 1)

	go func() {
		body, err := r.client.GetRaw(ctx, r.client.ProjectURL(area, resource))
		projectCh <- scopeResult{body: body, err: err}
	}()
	go func() {
		body, err := r.client.GetRaw(ctx, r.client.CollectionURL(area, resource))
		collectionCh <- scopeResult{body: body, err: err}
	}()

	project := <-projectCh
	collection := <-collectionCh

	winner := project
	if project.err != nil {
		winner = collection
	}
	if winner.err != nil {
		return winner.err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(winner.body, out); err != nil {
		return fmt.Errorf("unmarshaling %s/%s response: %w", area, resource, err)
	}
	return nil
}
