package searchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/normalisers"
	"github.com/custodia-labs/intel-ingest/internal/sources/httpfetch"
)

const postmortemHits = `{"hits":[
  {"title":"Why our startup failed","url":"https://blog.example.com/postmortem","objectID":"101","created_at":"2021-03-04T10:00:00.000Z","points":120},
  {"title":"Ask HN: Lessons from shutting down","url":null,"objectID":"102","created_at":"2019-07-01T00:00:00Z","points":45},
  {"title":"","url":"https://blog.example.com/untitled","objectID":"103"},
  {"title":"No identifier at all"}
]}`

const duplicateHits = `{"hits":[
  {"title":"Why our startup failed (repost)","url":"https://BLOG.example.com/postmortem","objectID":"104"},
  {"title":"We ran out of runway","url":"https://runway.example.com","objectID":"105","created_at":"2020-01-01T00:00:00Z"}
]}`

func server(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "story", r.URL.Query().Get("tags"))
		switch r.URL.Query().Get("query") {
		case "startup post mortem":
			_, _ = w.Write([]byte(postmortemHits))
		case "why we shut down":
			_, _ = w.Write([]byte(duplicateHits))
		case "broken":
			_, _ = w.Write([]byte("<html>oops</html>"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
}

func newAdapter(t *testing.T, url string, kind domain.RecordKind, queries ...string) *Adapter {
	t.Helper()
	a, err := New(domain.SourceConfig{
		Key: "hn", Adapter: domain.AdapterSearchAPI, Record: kind, URL: url, Queries: queries,
	}, httpfetch.New(httpfetch.Config{Rate: 1000}), nil)
	require.NoError(t, err)
	return a
}

func TestFetchAndParse_DedupesByCanonicalURL(t *testing.T) {
	var calls atomic.Int32
	srv := server(t, &calls)
	defer srv.Close()

	a := newAdapter(t, srv.URL, domain.KindFailure, "startup post mortem", "why we shut down")
	payload, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	recs, err := a.Parse(context.Background(), payload)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "https://blog.example.com/postmortem", recs[0].String(normalisers.FieldSourceURL))
	assert.Equal(t, 2021, recs[0].Fields[normalisers.FieldYear])
	assert.Equal(t, []string{"startup post mortem"}, recs[0].Strings(normalisers.FieldTags))

	assert.Equal(t, "https://news.ycombinator.com/item?id=102", recs[1].String(normalisers.FieldSourceURL))
	assert.Equal(t, "https://runway.example.com", recs[2].String(normalisers.FieldSourceURL))

	reg := normalisers.Default()
	rec, err := reg.Normalise(recs[2])
	require.NoError(t, err)
	assert.Equal(t, "funding", rec.(*domain.FailureRecord).DecisionType)
}

func TestFetch_ToleratesPartialFailure(t *testing.T) {
	var calls atomic.Int32
	srv := server(t, &calls)
	defer srv.Close()

	a := newAdapter(t, srv.URL, domain.KindFailure, "fails", "startup post mortem", "broken")
	payload, err := a.Fetch(context.Background())
	require.NoError(t, err)

	var bundle Bundle
	require.NoError(t, json.Unmarshal(payload, &bundle))
	assert.Len(t, bundle.Responses, 2)

	recs, err := a.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestFetch_AllQueriesFail(t *testing.T) {
	var calls atomic.Int32
	srv := server(t, &calls)
	defer srv.Close()

	a := newAdapter(t, srv.URL, domain.KindFailure, "fails", "also fails")
	_, err := a.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestParse_ProductLaunch(t *testing.T) {
	a := newAdapter(t, "https://hn.example.com/search", domain.KindProductLaunch, "Show HN")
	body := `{"hits":[{"title":"Show HN: Ledger, budgeting for teams","url":"https://ledger.dev","objectID":"9","created_at":"2024-05-02T08:00:00Z","points":88}]}`
	payload, err := json.Marshal(Bundle{Responses: []QueryResponse{{Query: "Show HN", Body: []byte(body)}}})
	require.NoError(t, err)

	recs, err := a.Parse(context.Background(), payload)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Ledger, budgeting for teams", recs[0].String(normalisers.FieldName))
	assert.Equal(t, "2024-05-02", recs[0].String(normalisers.FieldLaunchDate))
	assert.Equal(t, 88, recs[0].Fields[normalisers.FieldPoints])
	assert.Equal(t, "https://ledger.dev", recs[0].String(normalisers.FieldURL))
}

func TestParse_Malformed(t *testing.T) {
	a := newAdapter(t, "u", domain.KindFailure, "q")

	_, err := a.Parse(context.Background(), []byte("not json"))
	assert.ErrorIs(t, err, domain.ErrParse)

	payload, err := json.Marshal(Bundle{Responses: []QueryResponse{{Query: "q", Body: []byte("<html>")}}})
	require.NoError(t, err)
	_, err = a.Parse(context.Background(), payload)
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestValidate(t *testing.T) {
	a := newAdapter(t, "https://x", domain.KindFailure)
	err := a.Validate(context.Background())
	require.Error(t, err)
	var ce *domain.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "queries", ce.Setting)
}

func TestCanonicalURL(t *testing.T) {
	assert.Equal(t, "https://a", Hit{URL: " https://a "}.CanonicalURL())
	assert.Equal(t, ItemURLPrefix+"7", Hit{ObjectID: "7"}.CanonicalURL())
	assert.Empty(t, Hit{}.CanonicalURL())
}

func TestQueryURL(t *testing.T) {
	a := newAdapter(t, "https://hn.algolia.com/api/v1/search?hitsPerPage=50", domain.KindFailure, "q")
	assert.Equal(t, "https://hn.algolia.com/api/v1/search?hitsPerPage=50&query=why+we+failed&tags=story", a.queryURL("why we failed"))
}
