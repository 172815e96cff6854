package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Kilat-Pet-Delivery/service-album/internal/httpclient"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]interface{}
}

// fakeServer answers every request with status and the JSON envelope body, recording
// what it received.
func fakeServer(t *testing.T, status int, body string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			assert.NoError(t, json.Unmarshal(raw, &rec.body))
		}
		calls = append(calls, rec)
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	cmd := RootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", srv.URL}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPinsList(t *testing.T) {
	id := uuid.New()
	srv, calls := fakeServer(t, http.StatusOK,
		`{"success":true,"data":[{"id":"`+id.String()+`","latitude":1.5,"longitude":2.5,"photo_count":4,"pending_count":1,"refreshing":true}]}`)

	out, err := run(t, srv, "pins", "list")
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/api/v1/locations", (*calls)[0].path)
	assert.Contains(t, out, "PHOTOS")
	assert.Contains(t, out, id.String())
	assert.Contains(t, out, "1.500000")
}

func TestPinsAdd(t *testing.T) {
	srv, calls := fakeServer(t, http.StatusCreated, `{"success":true,"data":{"id":"`+uuid.NewString()+`","latitude":52.52,"longitude":13.405}}`)

	out, err := run(t, srv, "pins", "add", "--lat", "52.52", "--lon", "13.405", "--prefetch")
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, 52.52, call.body["latitude"])
	assert.Equal(t, true, call.body["prefetch"])
	assert.Contains(t, out, `"latitude": 52.52`)
}

func TestPinsAdd_RequiresCoordinates(t *testing.T) {
	srv, calls := fakeServer(t, http.StatusCreated, `{"success":true}`)

	_, err := run(t, srv, "pins", "add", "--lat", "1")
	assert.Error(t, err)
	assert.Empty(t, *calls)
}

func TestPinsDelete(t *testing.T) {
	srv, calls := fakeServer(t, http.StatusNoContent, "")
	id := uuid.New()

	out, err := run(t, srv, "pins", "delete", id.String())
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/locations/"+id.String(), (*calls)[0].path)
	assert.Equal(t, "deleted "+id.String()+"\n", out)

	_, err = run(t, srv, "pins", "delete", "nope")
	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	id := uuid.New()
	srv, calls := fakeServer(t, http.StatusOK,
		`{"success":true,"data":{"id":"`+uuid.NewString()+`","state":"completed","total":5,"hydrated":4,"failed":1}}`)

	out, err := run(t, srv, "refresh", id.String(), "--wait")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, (*calls)[0].method)
	assert.Equal(t, "wait=true", (*calls)[0].query)
	assert.Contains(t, out, "completed: 5 photos, 4 hydrated, 1 failed, 0 pending")

	_, err = run(t, srv, "refresh", id.String(), "--status")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, (*calls)[1].method)

	_, err = run(t, srv, "refresh", id.String(), "--status", "--wait")
	assert.Error(t, err)
}

func TestRefresh_ReportsFailedSummary(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusOK, `{"success":true,"data":{"state":"failed","error":"flickr: bad status"}}`)

	_, err := run(t, srv, "refresh", uuid.NewString())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flickr: bad status")
}

func TestViewportSet(t *testing.T) {
	srv, calls := fakeServer(t, http.StatusOK, `{"success":true,"data":{"latitude":1,"longitude":2,"latitude_delta":0.5,"longitude_delta":0.25}}`)

	_, err := run(t, srv, "viewport", "set", "--lat", "1", "--lon", "2", "--lat-delta", "0.5", "--lon-delta", "0.25")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, (*calls)[0].method)
	assert.Equal(t, 0.25, (*calls)[0].body["longitude_delta"])
}

func TestAPIErrorsAreSurfaced(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusNotFound, `{"success":false,"error":{"code":"NOT_FOUND","message":"MapViewport not found"}}`)

	_, err := run(t, srv, "viewport", "get")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "MapViewport not found")
}

func TestClientCall_NonJSONError(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusBadGateway, "<html>bad gateway</html>")

	err := NewClient(srv.URL, httpclient.New(nil)).Call(context.Background(), http.MethodGet, "/x", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "server answered 502", apiErr.Error())
}
