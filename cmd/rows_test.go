package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/services"
	"github.com/tablecraft/tablecraft/internal/session"
	"github.com/tablecraft/tablecraft/internal/util"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// ordersServer serves one project with an orders table of n rows, at most two rows per page.
func ordersServer(t *testing.T, n int) *httptest.Server {
	r := chi.NewRouter()
	r.Get("/data/projects", func(w http.ResponseWriter, r *http.Request) {
		project := map[string]any{"id": "p1", "name": "shop", "userId": "u1", "apiKey": "k1", "tables": []map[string]any{
			{"id": "t1", "name": "orders", "fields": []map[string]any{{"id": "f1", "name": "number", "type": "string"}}},
		}}
		writeJSON(w, map[string]any{"success": true, "data": []any{project}, "meta": map[string]any{"total": 1}})
	})
	r.Get("/data/orders", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		rows := make([]map[string]any, 0, 2)
		for i := (page - 1) * 2; i < n && len(rows) < 2; i++ {
			rows = append(rows, map[string]any{"id": "o" + strconv.Itoa(i), "number": "N-" + strconv.Itoa(i)})
		}
		writeJSON(w, map[string]any{"success": true, "data": rows, "meta": map[string]any{"total": n, "page": page, "pageSize": 2}})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func loggedIn(t *testing.T, dir string) {
	sess, err := session.NewDBStore(session.DBConfig{Logger: logger.NewTestLogger(), Dir: dir})
	require.NoError(t, err)
	require.NoError(t, sess.SetTokens("token", "refresh"))
	require.NoError(t, sess.SetUser(&model.User{ID: "u1", Email: "a@example.com"}))
	require.NoError(t, sess.Close())
}

func execute(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRowsExportCommand(t *testing.T) {
	dir := t.TempDir()
	loggedIn(t, dir)
	srv := ordersServer(t, 5)
	fn := filepath.Join(dir, "orders.ndjson.gz")

	out, err := execute(t, "rows", "export", "orders", "--silent", "--project", "shop", "--data-dir", dir, "--api-url", srv.URL, "--output", fn)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 5 rows")

	dec, err := util.NewNDJSONDecoder(fn)
	require.NoError(t, err)
	defer dec.Close()
	var numbers []string
	for dec.More() {
		var row services.Row
		require.NoError(t, dec.Decode(&row))
		numbers = append(numbers, row["number"].(string))
	}
	assert.Equal(t, []string{"N-0", "N-1", "N-2", "N-3", "N-4"}, numbers)

	out, err = execute(t, "rows", "export", "orders", "--silent", "--project", "shop", "--data-dir", dir, "--api-url", srv.URL, "--output=")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[4], `"N-4"`)
}

func TestRowsExportCommandUnknownTable(t *testing.T) {
	dir := t.TempDir()
	loggedIn(t, dir)
	srv := ordersServer(t, 1)
	_, err := execute(t, "rows", "export", "invoices", "--silent", "--project", "shop", "--data-dir", dir, "--api-url", srv.URL, "--output=")
	require.Error(t, err)
	assert.Contains(t, errorMessage(err), "table invoices")
}
