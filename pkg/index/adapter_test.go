package index

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scielo-forge/exporter/pkg/articlemeta"
	"github.com/scielo-forge/exporter/pkg/httpclient"
)

// fakeBuilder is a minimal PayloadBuilder wired to a test server.
type fakeBuilder struct {
	doc  *articlemeta.Document
	base string
}

func (b *fakeBuilder) ID() string         { return b.doc.DOAJID }
func (b *fakeBuilder) Params() url.Values { return url.Values{"api_key": []string{"secret"}} }
func (b *fakeBuilder) CreateURL() string  { return b.base + "/articles" }
func (b *fakeBuilder) BulkURL() string    { return b.base + "/bulk/articles" }

func (b *fakeBuilder) ItemURL() (string, error) {
	if b.doc.DOAJID == "" {
		return "", fmt.Errorf("document has no index id")
	}
	return b.base + "/articles/" + b.doc.DOAJID, nil
}

func (b *fakeBuilder) PostRequest(ctx context.Context) (map[string]any, error) {
	return map[string]any{"pid": b.doc.PID}, nil
}

func (b *fakeBuilder) PutRequest(ctx context.Context, existing map[string]any) (map[string]any, error) {
	payload := make(map[string]any, len(existing)+1)
	for key, value := range existing {
		payload[key] = value
	}
	payload["pid"] = b.doc.PID
	return payload, nil
}

func (b *fakeBuilder) PostResponse(body map[string]any) map[string]any {
	return map[string]any{"index_id": body["id"], "status": body["status"]}
}

func (b *fakeBuilder) ErrorResponse(body map[string]any) string {
	detail, _ := body["error"].(string)
	return detail
}

func testConfig(base string) ExporterConfig {
	registry := NewRegistry()
	registry.Register("fake", func(doc *articlemeta.Document) (PayloadBuilder, error) {
		return &fakeBuilder{doc: doc, base: base}, nil
	})
	return ExporterConfig{
		Registry: registry,
		Client:   httpclient.New(httpclient.Config{MaxAttempts: 1}),
	}
}

func testDoc(pid, doajID string) *articlemeta.Document {
	return &articlemeta.Document{Collection: "scl", PID: pid, DOAJID: doajID}
}

func TestParseCommand(t *testing.T) {
	for _, name := range []string{"export", "update", "get", "delete"} {
		command, err := ParseCommand(name)
		require.NoError(t, err)
		assert.Equal(t, Command(name), command)
	}

	_, err := ParseCommand("reindex")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCommand)
	assert.Equal(t, "Comando informado inválido: reindex", err.Error())
}

func TestCommand_SupportsBulk(t *testing.T) {
	assert.True(t, CommandExport.SupportsBulk())
	assert.True(t, CommandDelete.SupportsBulk())
	assert.False(t, CommandUpdate.SupportsBulk())
	assert.False(t, CommandGet.SupportsBulk())
}

func TestNewDocumentExporter(t *testing.T) {
	t.Run("unknown index", func(t *testing.T) {
		_, err := NewDocumentExporter(testConfig("http://index"), "solr", CommandExport, testDoc("S01", ""))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidIndex)
		assert.Equal(t, "Index informado inválido: solr", err.Error())
	})

	t.Run("unknown command", func(t *testing.T) {
		_, err := NewDocumentExporter(testConfig("http://index"), "fake", Command("reindex"), testDoc("S01", ""))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCommand)
		assert.Equal(t, "Comando informado inválido: reindex", err.Error())
	})
}

func TestDocumentExporter_Export(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/articles", r.URL.Path)
			require.Equal(t, "secret", r.URL.Query().Get("api_key"))

			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.Equal(t, "S01", payload["pid"])

			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": "doaj-1", "status": "OK"}`)
		}))
		defer server.Close()

		adapter, err := NewDocumentExporter(testConfig(server.URL), "fake", CommandExport, testDoc("S01", ""))
		require.NoError(t, err)

		result, err := adapter.CommandFunction(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Result{"index_id": "doaj-1", "status": "OK", "pid": "S01"}, result)
	})

	t.Run("bad request carries the service detail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": "Fake Field is missing."}`)
		}))
		defer server.Close()

		adapter, err := NewDocumentExporter(testConfig(server.URL), "fake", CommandExport, testDoc("S01", ""))
		require.NoError(t, err)

		_, err = adapter.CommandFunction(context.Background())
		require.Error(t, err)
		assert.Equal(t,
			fmt.Sprintf("Erro na exportação ao fake: 400 Bad Request for url %s/articles. Fake Field is missing.", server.URL),
			err.Error())
	})

	t.Run("server errors carry no detail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		adapter, err := NewDocumentExporter(testConfig(server.URL), "fake", CommandExport, testDoc("S01", ""))
		require.NoError(t, err)

		_, err = adapter.CommandFunction(context.Background())
		require.Error(t, err)

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
		assert.Empty(t, httpErr.Detail)
	})
}

func TestDocumentExporter_Update(t *testing.T) {
	t.Run("fetches the existing representation before putting", func(t *testing.T) {
		var putBody map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/articles/doaj-1", r.URL.Path)
			switch r.Method {
			case http.MethodGet:
				fmt.Fprint(w, `{"id": "doaj-1", "created_date": "2020-01-01T00:00:00.000000Z"}`)
			case http.MethodPut:
				require.NoError(t, json.NewDecoder(r.Body).Decode(&putBody))
				w.WriteHeader(http.StatusNoContent)
			default:
				t.Fatalf("unexpected method %s", r.Method)
			}
		}))
		defer server.Close()

		adapter, err := NewDocumentExporter(testConfig(server.URL), "fake", CommandUpdate, testDoc("S01", "doaj-1"))
		require.NoError(t, err)

		result, err := adapter.CommandFunction(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Result{"pid": "S01", "status": "UPDATED"}, result)

		// Fields of the fetched representation survive the merge.
		assert.Equal(t, "2020-01-01T00:00:00.000000Z", putBody["created_date"])
		assert.Equal(t, "S01", putBody["pid"])
	})

	t.Run("query failure reports the query prefix", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		adapter, err := NewDocumentExporter(testConfig(server.URL), "fake", CommandUpdate, testDoc("S01", "doaj-1"))
		require.NoError(t, err)

		_, err = adapter.CommandFunction(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Erro na consulta ao fake: 404 Not Found")
	})

	t.Run("unknown index id fails before any request", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer server.Close()

		adapter, err := NewDocumentExporter(testConfig(server.URL), "fake", CommandUpdate, testDoc("S01", ""))
		require.NoError(t, err)

		_, err = adapter.CommandFunction(context.Background())
		require.Error(t, err)
		assert.Zero(t, calls)
	})
}

func TestDocumentExporter_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/articles/doaj-1", r.URL.Path)
		fmt.Fprint(w, `{"id": "doaj-1", "bibjson": {"title": "Artigo"}}`)
	}))
	defer server.Close()

	adapter, err := NewDocumentExporter(testConfig(server.URL), "fake", CommandGet, testDoc("S01", "doaj-1"))
	require.NoError(t, err)

	result, err := adapter.CommandFunction(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "doaj-1", result["id"])
	assert.Equal(t, "S01", result["pid"])
}

func TestDocumentExporter_Delete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/articles/doaj-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	adapter, err := NewDocumentExporter(testConfig(server.URL), "fake", CommandDelete, testDoc("S01", "doaj-1"))
	require.NoError(t, err)

	result, err := adapter.CommandFunction(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{"pid": "S01", "status": "DELETED"}, result)
}

func TestDocumentExporter_SingleShot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "doaj-1", "status": "OK"}`)
	}))
	defer server.Close()

	adapter, err := NewDocumentExporter(testConfig(server.URL), "fake", CommandExport, testDoc("S01", ""))
	require.NoError(t, err)

	_, err = adapter.CommandFunction(context.Background())
	require.NoError(t, err)

	_, err = adapter.CommandFunction(context.Background())
	assert.ErrorIs(t, err, ErrSpentAdapter)
}

func TestRegistry_Indexes(t *testing.T) {
	registry := NewRegistry()
	registry.Register("fake", func(doc *articlemeta.Document) (PayloadBuilder, error) {
		return nil, nil
	})
	registry.Register("doaj", func(doc *articlemeta.Document) (PayloadBuilder, error) {
		return nil, nil
	})

	assert.Equal(t, []string{"doaj", "fake"}, registry.Indexes())
}
