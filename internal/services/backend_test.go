package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/require"
	"github.com/tablecraft/tablecraft/internal/apiclient"
)

var filterKey = regexp.MustCompile(`^filter\[(\w+)\]\[(\w+)\]$`)

// fakeBackend is an in-memory Generic Handler.
type fakeBackend struct {
	mu       sync.Mutex
	data     map[string][]map[string]any
	seq      int
	hits     map[string]int
	headers  map[string]http.Header
	failures map[string]int
	refused  map[string]bool
	pageCap  int
	login    map[string]any
}

func (b *fakeBackend) hit(r *http.Request) {
	key := r.Method + " " + r.URL.Path
	b.hits[key]++
	b.headers[key] = r.Header.Clone()
}

func (b *fakeBackend) Hits(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+path]
}

func (b *fakeBackend) Header(method, path string) http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers[method+" "+path]
}

func (b *fakeBackend) Seed(resource string, objs ...map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[resource] = append(b.data[resource], objs...)
}

func (b *fakeBackend) All(resource string) []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.data[resource]...)
}

// Fail makes the resource answer 500 to every request.
func (b *fakeBackend) Fail(resource string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[resource] = 1
}

// CapPageSize makes list requests return at most n items whatever page size was asked for.
func (b *fakeBackend) CapPageSize(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pageCap = n
}

// RefuseDeletes makes deletes on the resource answer 200 with an unsuccessful envelope.
func (b *fakeBackend) RefuseDeletes(resource string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refused[resource] = true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) match(r *http.Request, resource string) []map[string]any {
	var res []map[string]any
	for _, obj := range b.data[resource] {
		ok := true
		for k, v := range r.URL.Query() {
			m := filterKey.FindStringSubmatch(k)
			if m == nil {
				continue
			}
			if m[2] == "eq" && fmt.Sprint(obj[m[1]]) != v[0] {
				ok = false
			}
		}
		if ok {
			res = append(res, obj)
		}
	}
	return res
}

func (b *fakeBackend) find(resource, id string) (int, map[string]any) {
	for i, obj := range b.data[resource] {
		if fmt.Sprint(obj["id"]) == id {
			return i, obj
		}
	}
	return -1, nil
}

func (b *fakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			b.hit(r)
			b.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": b.login})
	})
	r.Get("/api-keys/master-admin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{{"id": "m1", "name": "root", "keyPrefix": "tc_live", "active": true}}})
	})
	r.Delete("/api-keys/master-admin/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "last" {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "cannot delete the last master admin key"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/api-keys/{id}/regenerate", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": chi.URLParam(r, "id"), "key": "regenerated", "active": true}})
	})
	r.Get("/debug/tables-detailed", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{{"schema": "public", "name": "users", "rowCount": 3, "columns": []map[string]any{{"name": "id", "dataType": "uuid"}}}}})
	})
	r.Get("/debug/table/{schema}/{table}/data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{{"schema": chi.URLParam(r, "schema"), "table": chi.URLParam(r, "table"), "limit": r.URL.Query().Get("limit")}}})
	})
	r.Route("/data/{resource}", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b.mu.Lock()
				failing := b.failures[chi.URLParam(r, "resource")] > 0
				b.mu.Unlock()
				if failing {
					writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "boom"})
					return
				}
				next.ServeHTTP(w, r)
			})
		})
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			items := b.match(r, chi.URLParam(r, "resource"))
			total := len(items)
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
			if b.pageCap > 0 && size > b.pageCap {
				size = b.pageCap
			}
			if page > 0 && size > 0 {
				start := (page - 1) * size
				if start > len(items) {
					start = len(items)
				}
				end := start + size
				if end > len(items) {
					end = len(items)
				}
				items = items[start:end]
			}
			if items == nil {
				items = make([]map[string]any, 0)
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": items, "meta": map[string]any{"total": total, "page": page, "pageSize": size}})
		})
		r.Get("/count", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": len(b.match(r, chi.URLParam(r, "resource")))})
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var obj map[string]any
			if err := json.NewDecoder(r.Body).Decode(&obj); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
				return
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			resource := chi.URLParam(r, "resource")
			b.seq++
			obj["id"] = fmt.Sprintf("%s-%d", resource, b.seq)
			if resource == "projects" {
				obj["apiKey"] = fmt.Sprintf("key-%d", b.seq)
			}
			b.data[resource] = append(b.data[resource], obj)
			writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": obj})
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			_, obj := b.find(chi.URLParam(r, "resource"), chi.URLParam(r, "id"))
			if obj == nil {
				writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": obj})
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var changes map[string]any
			if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
				return
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			_, obj := b.find(chi.URLParam(r, "resource"), chi.URLParam(r, "id"))
			if obj == nil {
				writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
				return
			}
			for k, v := range changes {
				obj[k] = v
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": obj})
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			resource := chi.URLParam(r, "resource")
			if b.refused[resource] {
				writeJSON(w, http.StatusOK, map[string]any{"success": false})
				return
			}
			i, obj := b.find(resource, chi.URLParam(r, "id"))
			if obj == nil {
				writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
				return
			}
			b.data[resource] = append(b.data[resource][:i], b.data[resource][i+1:]...)
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}

func newFakeBackend(t *testing.T) (*fakeBackend, *Services) {
	b := &fakeBackend{
		data:     make(map[string][]map[string]any),
		hits:     make(map[string]int),
		headers:  make(map[string]http.Header),
		failures: make(map[string]int),
		refused:  make(map[string]bool),
	}
	srv := httptest.NewServer(b.routes())
	t.Cleanup(srv.Close)
	client, err := apiclient.New(srv.URL, apiclient.WithLogger(logger.NewTestLogger()), apiclient.WithRetry(0, 0))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	svc := New(ctx, client, Config{Logger: logger.NewTestLogger()})
	t.Cleanup(func() {
		svc.Close()
		cancel()
	})
	return b, svc
}
