package ado

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientURLBuilders(t *testing.T) {
	c := NewClient("https://dev.example.com/DefaultCollection/", "My Project", "tok")

	assert.Equal(t,
		"https://dev.example.com/DefaultCollection/My%20Project/_apis/wit/wiql",
		c.ProjectURL("wit", "wiql"),
	)
	assert.Equal(t,
		"https://dev.example.com/DefaultCollection/_apis/wit/fields/System.Title",
		c.CollectionURL("wit", "fields/System.Title"),
	)
	assert.Equal(t, "My Project", c.Project())
}

func TestClientStampsAuthAndAPIVersion(t *testing.T) {
	var gotAuth, gotVersion, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.URL.Query().Get("api-version")
		gotAccept = r.Header.Get("Accept")
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Proj", "secret-token")

	var out map[string]any
	require.NoError(t, c.Get(context.Background(), srv.URL+"/thing", &out))

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "7.1", gotVersion)
	assert.Equal(t, "application/json", gotAccept)
}

func TestClientPatchUsesJSONPatchContentType(t *testing.T) {
	var gotContentType string
	var gotOps []PatchOp
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotOps)
		io.WriteString(w, `{"id":7,"fields":{}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Proj", "tok")

	ops := []PatchOp{Add("System.Title", "hello")}
	var item WorkItem
	require.NoError(t, c.Patch(context.Background(), srv.URL+"/workitems/$Bug", ops, &item))

	assert.Equal(t, "application/json-patch+json", gotContentType)
	require.Len(t, gotOps, 1)
	assert.Equal(t, "add", gotOps[0].Op)
	assert.Equal(t, "/fields/System.Title", gotOps[0].Path)
	assert.Equal(t, 7, item.ID)
}

func TestClientNon2xxIsRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"TF401320: invalid field name"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Proj", "tok")

	err := c.Get(context.Background(), srv.URL+"/thing", nil)
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
	assert.Contains(t, reqErr.Body, "TF401320")
	assert.Contains(t, reqErr.Error(), "status 400")
}

func TestClientPreservesExistingQueryParams(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Proj", "tok")
	require.NoError(t, c.Get(context.Background(), srv.URL+"/thing?expand=all", nil))

	assert.Contains(t, rawQuery, "expand=all")
	assert.Contains(t, rawQuery, "api-version=7.1")
}

func TestIsNotFound(t *testing.T) {
	nf := &NotFoundError{Resource: "field Custom.X", Err: &RequestError{StatusCode: 404}}

	assert.True(t, IsNotFound(nf))
	assert.True(t, IsNotFound(errorsWrap(nf)))
	assert.False(t, IsNotFound(&RequestError{StatusCode: 500}))
	assert.False(t, IsNotFound(nil))
}

// errorsWrap wraps err one level deep to exercise chain matching.
func errorsWrap(err error) error {
	return &RequestError{Method: "GET", URL: "http://x", Err: err}
}
