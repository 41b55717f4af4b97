package index

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scielo-forge/exporter/pkg/articlemeta"
)

func TestNewBulkExporter(t *testing.T) {
	docs := []*articlemeta.Document{testDoc("S01", ""), testDoc("S02", "")}

	t.Run("requires at least one document", func(t *testing.T) {
		_, err := NewBulkExporter(testConfig("http://index"), "fake", CommandExport, nil)
		require.Error(t, err)
	})

	t.Run("unknown index", func(t *testing.T) {
		_, err := NewBulkExporter(testConfig("http://index"), "solr", CommandExport, docs)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidIndex)
	})

	t.Run("only export and delete exist in bulk form", func(t *testing.T) {
		for _, command := range []Command{CommandUpdate, CommandGet, Command("reindex")} {
			_, err := NewBulkExporter(testConfig("http://index"), "fake", command, docs)
			require.Error(t, err, "command %s", command)
			assert.ErrorIs(t, err, ErrInvalidCommand)
		}
	})
}

func TestBulkExporter_Export(t *testing.T) {
	t.Run("zips the response entries back to pids in item order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/bulk/articles", r.URL.Path)
			require.Equal(t, "secret", r.URL.Query().Get("api_key"))

			var payloads []map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payloads))
			require.Len(t, payloads, 2)
			require.Equal(t, "S01", payloads[0]["pid"])
			require.Equal(t, "S02", payloads[1]["pid"])

			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `[{"id": "doaj-1", "status": "OK"}, {"id": "doaj-2", "status": "OK"}]`)
		}))
		defer server.Close()

		adapter, err := NewBulkExporter(testConfig(server.URL), "fake", CommandExport,
			[]*articlemeta.Document{testDoc("S01", ""), testDoc("S02", "")})
		require.NoError(t, err)

		results, err := adapter.CommandFunction(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []Result{
			{"index_id": "doaj-1", "status": "OK", "pid": "S01"},
			{"index_id": "doaj-2", "status": "OK", "pid": "S02"},
		}, results)
	})

	t.Run("result count mismatch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `[{"id": "doaj-1", "status": "OK"}]`)
		}))
		defer server.Close()

		adapter, err := NewBulkExporter(testConfig(server.URL), "fake", CommandExport,
			[]*articlemeta.Document{testDoc("S01", ""), testDoc("S02", "")})
		require.NoError(t, err)

		_, err = adapter.CommandFunction(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 results for 2 documents")
	})

	t.Run("bad request carries the service detail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": "Fake Field is missing."}`)
		}))
		defer server.Close()

		adapter, err := NewBulkExporter(testConfig(server.URL), "fake", CommandExport,
			[]*articlemeta.Document{testDoc("S01", "")})
		require.NoError(t, err)

		_, err = adapter.CommandFunction(context.Background())
		require.Error(t, err)
		assert.Equal(t,
			fmt.Sprintf("Erro na exportação ao fake: 400 Bad Request for url %s/bulk/articles. Fake Field is missing.", server.URL),
			err.Error())
	})
}

func TestBulkExporter_Delete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/bulk/articles", r.URL.Path)

		var ids []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
		require.Equal(t, []string{"doaj-1", "doaj-2"}, ids)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	adapter, err := NewBulkExporter(testConfig(server.URL), "fake", CommandDelete,
		[]*articlemeta.Document{testDoc("S01", "doaj-1"), testDoc("S02", "doaj-2")})
	require.NoError(t, err)

	results, err := adapter.CommandFunction(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Result{
		{"pid": "S01", "status": "DELETED"},
		{"pid": "S02", "status": "DELETED"},
	}, results)
}

func TestBulkExporter_SingleShot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `[{"id": "doaj-1", "status": "OK"}]`)
	}))
	defer server.Close()

	adapter, err := NewBulkExporter(testConfig(server.URL), "fake", CommandExport,
		[]*articlemeta.Document{testDoc("S01", "")})
	require.NoError(t, err)

	_, err = adapter.CommandFunction(context.Background())
	require.NoError(t, err)

	_, err = adapter.CommandFunction(context.Background())
	assert.ErrorIs(t, err, ErrSpentAdapter)
}
