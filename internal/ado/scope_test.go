package ado

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scopedServer serves project-scoped and collection-scoped paths with
// independent status/body pairs and counts requests to each scope.
func scopedServer(
	t *testing.T,
	projectStatus int, projectBody string,
	collectionStatus int, collectionBody string,
) (*httptest.Server, *atomic.Int32, *atomic.Int32) {
	t.Helper()

	var projectHits, collectionHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/Proj/_apis/") {
			projectHits.Add(1)
			w.WriteHeader(projectStatus)
			io.WriteString(w, projectBody)
			return
		}
		collectionHits.Add(1)
		w.WriteHeader(collectionStatus)
		io.WriteString(w, collectionBody)
	}))
	t.Cleanup(srv.Close)

	return srv, &projectHits, &collectionHits
}

func TestScopeResolverProjectWinsWhenBothSucceed(t *testing.T) {
	srv, projectHits, collectionHits := scopedServer(t,
		http.StatusOK, `{"name":"project-scoped"}`,
		http.StatusOK, `{"name":"collection-scoped"}`,
	)

	r := NewScopeResolver(NewClient(srv.URL, "Proj", "tok"))

	var field WorkItemField
	require.NoError(t, r.Get(context.Background(), "wit", "fields/Custom.X", &field))

	assert.Equal(t, "project-scoped", field.Name)
	// Both requests are always issued; this is precedence, not a race.
	assert.Equal(t, int32(1), projectHits.Load())
	assert.Equal(t, int32(1), collectionHits.Load())
}

func TestScopeResolverFallsBackToCollection(t *testing.T) {
	srv, _, _ := scopedServer(t,
		http.StatusNotFound, `{"message":"not here"}`,
		http.StatusOK, `{"name":"collection-scoped"}`,
	)

	r := NewScopeResolver(NewClient(srv.URL, "Proj", "tok"))

	var field WorkItemField
	require.NoError(t, r.Get(context.Background(), "wit", "fields/Custom.X", &field))

	assert.Equal(t, "collection-scoped", field.Name)
}

func TestScopeResolverReturnsCollectionFailure(t *testing.T) {
	srv, projectHits, collectionHits := scopedServer(t,
		http.StatusNotFound, `{}`,
		http.StatusNotFound, `{"message":"nowhere"}`,
	)

	r := NewScopeResolver(NewClient(srv.URL, "Proj", "tok"))

	err := r.Get(context.Background(), "wit", "fields/Custom.X", nil)
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.StatusCode)
	assert.Contains(t, reqErr.Body, "nowhere")

	assert.Equal(t, int32(1), projectHits.Load())
	assert.Equal(t, int32(1), collectionHits.Load())
}
