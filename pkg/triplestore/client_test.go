package triplestore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcom/smartcom-go/pkg/metrics"
)

// fusekiStub emulates the query, update and data endpoints of a dataset.
type fusekiStub struct {
	mu      sync.Mutex
	queries []string
	updates []string
	loads   []string
	status  int
	body    string
}

func (f *fusekiStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/$/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/SmartCom/query", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/sparql-results+json", r.Header.Get("Accept"))
		assert.NoError(t, r.ParseForm())
		f.mu.Lock()
		f.queries = append(f.queries, r.PostForm.Get("query"))
		status, body := f.status, f.body
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
		}
		io.WriteString(w, body)
	})
	mux.HandleFunc("/SmartCom/update", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		f.mu.Lock()
		f.updates = append(f.updates, r.PostForm.Get("update"))
		status := f.status
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			io.WriteString(w, "Parse error: line 1")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/SmartCom/data", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/turtle; charset=utf-8", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.loads = append(f.loads, r.URL.RawQuery+"|"+string(data))
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

func newTestClient(t *testing.T, stub *fusekiStub, cfg Config) *Client {
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)
	cfg.BaseURL = server.URL
	cfg.Dataset = "SmartCom"
	return NewClient(cfg)
}

const selectResponse = `{
  "head": {"vars": ["produit", "prix"]},
  "results": {"bindings": [
    {"produit": {"type": "uri", "value": "http://example.org/onto#P1"},
     "prix": {"type": "literal", "value": "499.99", "datatype": "http://www.w3.org/2001/XMLSchema#decimal"}},
    {"produit": {"type": "uri", "value": "http://example.org/onto#P2"}}
  ]}
}`

func TestClient_Select(t *testing.T) {
	stub := &fusekiStub{body: selectResponse}
	client := newTestClient(t, stub, Config{})

	result, err := client.Select(context.Background(), "SELECT ?produit ?prix WHERE { ?produit ?p ?prix }")
	require.NoError(t, err)

	assert.Equal(t, []string{"produit", "prix"}, result.Variables)
	require.Len(t, result.Bindings, 2)
	assert.Equal(t, "uri", result.Bindings[0]["produit"].Type)
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#decimal", result.Bindings[0]["prix"].Datatype)

	price, ok := result.Bindings[0].Float("prix")
	assert.True(t, ok)
	assert.InDelta(t, 499.99, price, 1e-9)
	_, ok = result.Bindings[1].Float("prix")
	assert.False(t, ok)

	rows := result.Rows()
	assert.Equal(t, "http://example.org/onto#P2", rows[1]["produit"])
	assert.Equal(t, []string{"SELECT ?produit ?prix WHERE { ?produit ?p ?prix }"}, stub.queries)
}

func TestClient_Ask(t *testing.T) {
	stub := &fusekiStub{body: `{"head": {}, "boolean": true}`}
	client := newTestClient(t, stub, Config{})

	ok, err := client.Ask(context.Background(), "ASK { ?s ?p ?o }")
	require.NoError(t, err)
	assert.True(t, ok)

	stub.body = `{"head": {"vars": []}, "results": {"bindings": []}}`
	_, err = client.Ask(context.Background(), "ASK { ?s ?p ?o }")
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, OpAsk, qe.Operation)
}

func TestClient_Update(t *testing.T) {
	stub := &fusekiStub{}
	client := newTestClient(t, stub, Config{})

	update := "INSERT DATA { <urn:a> <urn:b> \"c & d\" }"
	require.NoError(t, client.Update(context.Background(), update))
	assert.Equal(t, []string{update}, stub.updates)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"bad request is malformed", http.StatusBadRequest, ErrMalformedQuery},
		{"server error is unavailable", http.StatusInternalServerError, ErrUnavailable},
		{"service unavailable", http.StatusServiceUnavailable, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &fusekiStub{status: tt.status, body: "Lexical error"}
			client := newTestClient(t, stub, Config{})

			_, err := client.Select(context.Background(), "SELECT oops")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var qe *QueryError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, "SELECT oops", qe.Query)
			assert.Equal(t, tt.status, qe.Status)

			err = client.Update(context.Background(), "DELETE oops")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: base, Dataset: "SmartCom", Timeout: time.Second})

	_, err := client.Select(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, client.Health(context.Background()), ErrUnavailable)
}

func TestClient_CanceledContext(t *testing.T) {
	stub := &fusekiStub{body: selectResponse}
	client := newTestClient(t, stub, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Select(ctx, "SELECT * WHERE { ?s ?p ?o }")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestClient_BoundedConcurrency(t *testing.T) {
	var inFlight, peak int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&inFlight, -1)
		io.WriteString(w, `{"head": {"vars": []}, "results": {"bindings": []}}`)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Dataset: "SmartCom", MaxConcurrent: 2})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Select(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&inFlight) == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&peak))
}

func TestClient_LoadTurtle(t *testing.T) {
	stub := &fusekiStub{}
	client := newTestClient(t, stub, Config{})

	require.NoError(t, client.LoadTurtle(context.Background(), "", "<urn:a> <urn:b> <urn:c> ."))
	require.NoError(t, client.LoadTurtle(context.Background(), "urn:graph:lexicon", "<urn:a> <urn:b> <urn:c> ."))

	require.Len(t, stub.loads, 2)
	assert.Equal(t, "default|<urn:a> <urn:b> <urn:c> .", stub.loads[0])
	assert.Equal(t, "graph="+url.QueryEscape("urn:graph:lexicon")+"|<urn:a> <urn:b> <urn:c> .", stub.loads[1])
}

func TestClient_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	stub := &fusekiStub{status: http.StatusBadRequest}
	client := newTestClient(t, stub, Config{Metrics: m})

	err := client.Update(context.Background(), "DELETE oops")
	require.True(t, errors.Is(err, ErrMalformedQuery))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "smartcom_triplestore_requests_total" {
			found = true
		}
	}
	assert.True(t, found)
}

// TestClient_LiveFuseki requires a running Fuseki instance with a SmartCom dataset.
func TestClient_LiveFuseki(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:3030", Dataset: "SmartCom", Timeout: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		t.Skip("Fuseki not available, skipping live triplestore test")
	}

	require.NoError(t, client.Update(ctx, `INSERT DATA { <urn:smartcom:test> <urn:smartcom:p> "v" }`))
	ok, err := client.Ask(ctx, `ASK { <urn:smartcom:test> <urn:smartcom:p> "v" }`)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, client.Update(ctx, `DELETE DATA { <urn:smartcom:test> <urn:smartcom:p> "v" }`))
}
