package trafficapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
)

const trafficBody = `{
  "age": [{"range": "0-17", "percent": "12"}, {"range": "18-24", "percent": 22.5}],
  "gender": {"male": "53", "female": 47},
  "graph": [{"hour": 9, "in": 120, "out": "98"}, {"hour": "10", "in": "130", "out": 101}],
  "summary": {
    "in": {"count": 1253, "change": "-14.6"},
    "out": {"count": "1187", "change": "-14.7%"},
    "total": {"count": 2440, "change": "-14.65"}
  }
}`

func TestClientTrafficRequest(t *testing.T) {
	var capturedURL string
	var capturedHeaders http.Header

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()
		return jsonResponse(http.StatusOK, trafficBody), nil
	})

	client, err := NewClient("http://traffic.test/api/", WithHTTPClient(&http.Client{Transport: rt}), WithToken("secret"))
	require.NoError(t, err)

	from := time.Date(2025, 3, 3, 15, 4, 0, 0, time.UTC)
	to := time.Date(2025, 3, 10, 15, 4, 0, 0, time.UTC)
	resp, err := client.Traffic(context.Background(), TrafficQuery{
		From:       from,
		To:         to,
		Kind:       enums.LocationKindStore,
		LocationID: "st1",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://traffic.test/api/traffic?from=2025-03-03&store_id=st1&to=2025-03-10", capturedURL)
	assert.Equal(t, "Bearer secret", capturedHeaders.Get("Authorization"))
	require.Len(t, resp.Age, 2)
	assert.Equal(t, 12.0, resp.Age[0].Percent.Float64())
	assert.Equal(t, 22.5, resp.Age[1].Percent.Float64())
	assert.Equal(t, 53.0, resp.Gender.Male.Float64())
	require.Len(t, resp.Graph, 2)
	assert.True(t, resp.Graph[0].Hour.Numeric)
	assert.False(t, resp.Graph[1].Hour.Numeric)
	assert.Equal(t, int64(98), resp.Graph[0].Out.Int64())
	assert.Equal(t, -14.7, resp.Summary.Out.Change.Float64())
	assert.Equal(t, int64(1187), resp.Summary.Out.Count.Int64())
}

func TestTrafficQueryOmitsLocationWhenUnset(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	values, err := TrafficQuery{From: day, To: day, Kind: enums.LocationKindCity}.Values()
	require.NoError(t, err)
	assert.Equal(t, "from=2025-01-01&to=2025-01-01", values.Encode())
}

func TestTrafficQueryFormatsDatesInTheirZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	from := time.Date(2025, 1, 1, 0, 30, 0, 0, tokyo)
	values, err := TrafficQuery{From: from, To: from}.Values()
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", values.Get("from"))
}

func TestTrafficQueryValidation(t *testing.T) {
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	_, err := TrafficQuery{From: day, To: day.Add(-time.Hour)}.Values()
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = TrafficQuery{To: day}.Values()
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = TrafficQuery{From: day, To: day, LocationID: "x"}.Values()
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestClientTrafficRejectsMissingSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"age": [], "gender": {"male": 50, "female": 50}, "graph": []}`)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	day := time.Now()
	_, err = client.Traffic(context.Background(), TrafficQuery{From: day, To: day})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMalformed))
}

func TestClientTrafficNon200IsDependencyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	observer := &recordingObserver{}
	client, err := NewClient(srv.URL, WithObserver(observer))
	require.NoError(t, err)

	day := time.Now()
	_, err = client.Traffic(context.Background(), TrafficQuery{From: day, To: day})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.Len(t, observer.calls, 1)
	assert.Equal(t, "/traffic", observer.calls[0].endpoint)
	assert.Equal(t, http.StatusBadGateway, observer.calls[0].status)
}

func TestClientTransportFailure(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	observer := &recordingObserver{}
	client, err := NewClient("http://traffic.test", WithHTTPClient(&http.Client{Transport: rt}), WithObserver(observer))
	require.NoError(t, err)

	_, err = client.ListLocations(context.Background(), enums.LocationKindCity)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.Len(t, observer.calls, 1)
	assert.Equal(t, 0, observer.calls[0].status)
}

func TestClientListLocations(t *testing.T) {
	var capturedPath string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedPath = req.URL.Path
		return jsonResponse(http.StatusOK, `[{"id": 1, "name": "Downtown"}, {"id": "st2", "name": ""}, {"id": "", "name": "ghost"}]`), nil
	})
	client, err := NewClient("http://traffic.test", WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	locations, err := client.ListLocations(context.Background(), enums.LocationKindStore)
	require.NoError(t, err)
	assert.Equal(t, "/store", capturedPath)
	assert.Equal(t, []Location{{ID: "1", Name: "Downtown"}, {ID: "st2", Name: "st2"}}, locations)
}

func TestClientListLocationsRejectsNonArray(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"error": "nope"}`), nil
	})
	client, err := NewClient("http://traffic.test", WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	_, err = client.ListLocations(context.Background(), enums.LocationKindRegion)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMalformed))
}

func TestClientListLocationsInvalidKind(t *testing.T) {
	client, err := NewClient("http://traffic.test")
	require.NoError(t, err)
	_, err = client.ListLocations(context.Background(), "country")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestNumberDecoding(t *testing.T) {
	cases := map[string]struct {
		valid bool
		value float64
	}{
		`42.5`:    {valid: true, value: 42.5},
		`"42.5"`:  {valid: true, value: 42.5},
		`" 7 % "`: {valid: true, value: 7},
		`null`:    {valid: false},
		`""`:      {valid: false},
	}
	for raw, want := range cases {
		var n Number
		require.NoError(t, n.UnmarshalJSON([]byte(raw)), raw)
		assert.Equal(t, want.valid, n.Valid(), raw)
		assert.Equal(t, want.value, n.Float64(), raw)
	}

	var n Number
	assert.Error(t, n.UnmarshalJSON([]byte(`"abc"`)))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

type observedCall struct {
	endpoint string
	status   int
}

type recordingObserver struct {
	calls []observedCall
}

func (r *recordingObserver) ObserveUpstream(endpoint string, status int, elapsed time.Duration) {
	r.calls = append(r.calls, observedCall{endpoint: endpoint, status: status})
}
