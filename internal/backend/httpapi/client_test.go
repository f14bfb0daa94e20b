package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/backend/httpapi"
	"taskdeck/internal/health"
	"taskdeck/internal/service"
	"taskdeck/internal/testutil"
)

// taskServer mimics the task service contract in memory.
type taskServer struct {
	mu         sync.Mutex
	nextID     int
	tasks      []service.Task
	health     map[string]string
	healthCode int
	requestIDs []string
}

func newTaskServer(t *testing.T) (*taskServer, *httptest.Server) {
	t.Helper()
	s := &taskServer{
		nextID:     1,
		health:     map[string]string{"status": "healthy", "database": "connected", "cache": "connected"},
		healthCode: http.StatusOK,
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s.mu.Lock()
			s.requestIDs = append(s.requestIDs, req.Header.Get(httpapi.RequestIDHeader))
			s.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, s.healthCode, s.health)
	})
	r.Get("/api/tasks", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, s.tasks)
	})
	r.Post("/api/tasks", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		task := service.Task{ID: service.TaskID(strconv.Itoa(s.nextID)), Title: body.Title}
		s.nextID++
		s.tasks = append([]service.Task{task}, s.tasks...)
		writeJSON(w, http.StatusCreated, task)
	})
	r.Put("/api/tasks/{id}", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Completed bool `json:"completed"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		id := service.TaskID(chi.URLParam(req, "id"))
		for i := range s.tasks {
			if s.tasks[i].ID == id {
				s.tasks[i].Completed = body.Completed
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "completed": body.Completed})
	})
	r.Delete("/api/tasks/{id}", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := service.TaskID(chi.URLParam(req, "id"))
		for i := range s.tasks {
			if s.tasks[i].ID == id {
				s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
				break
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return s, srv
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(t *testing.T, baseURL string) *httpapi.Client {
	t.Helper()
	c, err := httpapi.NewWithHTTPClient(baseURL, nil, time.Second, nil)
	require.NoError(t, err)
	return c
}

func TestNewWithHTTPClient_InvalidURL(t *testing.T) {
	_, err := httpapi.NewWithHTTPClient("ftp://example.com", nil, 0, nil)
	assert.Error(t, err)

	_, err = httpapi.NewWithHTTPClient("http://", nil, 0, nil)
	assert.Error(t, err)

	c, err := httpapi.NewWithHTTPClient("http://localhost:5000/", nil, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", c.BaseURL())
}

func TestClient_TaskLifecycle(t *testing.T) {
	s, srv := newTaskServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	tasks, err := c.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	created, err := c.CreateTask(ctx, "Buy milk")
	require.NoError(t, err)
	assert.Equal(t, service.Task{ID: "1", Title: "Buy milk"}, created)

	_, err = c.CreateTask(ctx, "Walk dog")
	require.NoError(t, err)

	require.NoError(t, c.UpdateTask(ctx, "1", true))

	tasks, err = c.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Walk dog", tasks[0].Title, "order as delivered")
	assert.True(t, tasks[1].Completed)

	require.NoError(t, c.DeleteTask(ctx, "2"))
	tasks, err = c.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, service.TaskID("1"), tasks[0].ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.requestIDs {
		assert.Len(t, id, 36, "every request carries a uuid")
	}
}

func TestClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.ListTasks(ctx)
	var te *service.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 500, te.StatusCode)
	assert.Equal(t, service.OpListTasks, te.Op)
	assert.Equal(t, "request failed with status code 500", err.Error())

	_, err = c.CreateTask(ctx, "x")
	require.True(t, errors.As(err, &te))
	assert.Equal(t, service.OpCreateTask, te.Op)

	err = c.UpdateTask(ctx, "1", true)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, service.OpUpdateTask, te.Op)

	err = c.DeleteTask(ctx, "1")
	require.True(t, errors.As(err, &te))
	assert.Equal(t, service.OpDeleteTask, te.Op)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url)
	_, err := c.ProbeHealth(context.Background())

	var te *service.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.StatusCode)
	assert.Equal(t, service.OpProbeHealth, te.Op)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := httpapi.NewWithHTTPClient(srv.URL, nil, 50*time.Millisecond, nil)
	require.NoError(t, err)

	_, err = c.ListTasks(context.Background())
	var te *service.TransportError
	require.True(t, errors.As(err, &te))
	assert.True(t, te.Timeout())
	assert.Equal(t, "timeout", te.Error())
}

func TestClient_CreateMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"title": "x"})
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).CreateTask(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid response")
}

func TestClient_ProbeHealth(t *testing.T) {
	s, srv := newTaskServer(t)
	c := newClient(t, srv.URL)

	report, err := c.ProbeHealth(context.Background())
	require.NoError(t, err)
	assert.True(t, report.DatabaseConnected())
	assert.True(t, report.CacheConnected())

	// Database down: the service answers 500 but still describes itself.
	s.mu.Lock()
	s.health = map[string]string{"status": "unhealthy", "database": "error", "cache": "connected"}
	s.healthCode = http.StatusInternalServerError
	s.mu.Unlock()

	_, err = c.ProbeHealth(context.Background())
	var te *service.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Equal(t, "request failed with status code 500", te.Error())
}

func TestClient_ProbeHealthDatabaseDownMarksAllErrors(t *testing.T) {
	s, srv := newTaskServer(t)
	s.mu.Lock()
	s.health = map[string]string{"status": "unhealthy", "database": "error", "cache": "connected"}
	s.healthCode = http.StatusInternalServerError
	s.mu.Unlock()

	rec := &testutil.Recorder{}
	m := health.New(newClient(t, srv.URL), rec, time.Minute, nil)

	state := m.Check(context.Background())

	assert.Equal(t, health.State{API: health.Error, Database: health.Error, Cache: health.Error}, state)
	assert.Equal(t, []string{health.UnreachableMessage}, rec.Raised())
}

func TestClient_ProbeHealthBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).ProbeHealth(context.Background())
	var te *service.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
}

func TestClient_EscapesTaskID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, newClient(t, srv.URL).DeleteTask(context.Background(), "a/b"))
	assert.Equal(t, "/api/tasks/a%2Fb", gotPath)
}
