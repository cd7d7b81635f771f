package remotestore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonahr4/taskapp-sync/internal/model"
)

func testSession() *model.AuthSession {
	return &model.AuthSession{UserID: "u1", Token: "tok"}
}

func TestCreateTaskSendsAuthAndDecodes(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.Method != http.MethodPost || r.URL.Path != "/v1/users/u1/tasks" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		json.NewEncoder(w).Encode(&model.Task{
			ID:        "srv-1",
			Title:     "Pack bags",
			CreatedAt: now,
			UpdatedAt: now,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	created, err := client.CreateTask(context.Background(), testSession(), &model.Task{Title: "Pack bags"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.ID != "srv-1" {
		t.Errorf("created ID = %q, want srv-1", created.ID)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", gotAuth)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	err := client.UpdateTask(context.Background(), testSession(), "missing", map[string]any{"title": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteTaskIdempotentOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	if err := client.DeleteTask(context.Background(), testSession(), "missing"); err != nil {
		t.Errorf("DeleteTask on missing id: %v, want nil", err)
	}
}

func TestServerErrorsClassifiedUnavailable(t *testing.T) {
	statuses := []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusInternalServerError, http.StatusBadGateway}
	for _, status := range statuses {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := NewClient(srv.URL, nil)
		_, err := client.ListTasks(context.Background(), testSession())
		if !IsUnavailable(err) {
			t.Errorf("status %d: error %v not classified as unavailable", status, err)
		}
		srv.Close()
	}
}

func TestConnectionRefusedIsUnavailable(t *testing.T) {
	// Grab a port that nothing listens on.
	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()

	client := NewClient(deadURL, nil)
	_, err := client.ListTasks(context.Background(), testSession())
	if !IsUnavailable(err) {
		t.Errorf("connection error %v not classified as unavailable", err)
	}
}

func TestBatchReorderBody(t *testing.T) {
	var got struct {
		OrderedIDs []string `json:"ordered_ids"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/users/u1/groups/reorder" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	if err := client.BatchReorder(context.Background(), testSession(), KindGroups, []string{"g2", "g1"}); err != nil {
		t.Fatalf("BatchReorder: %v", err)
	}
	if len(got.OrderedIDs) != 2 || got.OrderedIDs[0] != "g2" {
		t.Errorf("ordered_ids = %v, want [g2 g1]", got.OrderedIDs)
	}
}

func TestNoSessionRejectedWithoutNetwork(t *testing.T) {
	// A nil or empty session must come back as ErrNoSession from every
	// method, before any request is built.
	client := NewClient("http://example.invalid", nil)
	ctx := context.Background()

	calls := map[string]func(session *model.AuthSession) error{
		"CreateTask": func(s *model.AuthSession) error {
			_, err := client.CreateTask(ctx, s, &model.Task{Title: "x"})
			return err
		},
		"UpdateTask": func(s *model.AuthSession) error {
			return client.UpdateTask(ctx, s, "t1", map[string]any{"title": "x"})
		},
		"DeleteTask": func(s *model.AuthSession) error {
			return client.DeleteTask(ctx, s, "t1")
		},
		"ListTasks": func(s *model.AuthSession) error {
			_, err := client.ListTasks(ctx, s)
			return err
		},
		"CreateGroup": func(s *model.AuthSession) error {
			_, err := client.CreateGroup(ctx, s, &model.TaskGroup{Name: "g"})
			return err
		},
		"UpdateGroup": func(s *model.AuthSession) error {
			return client.UpdateGroup(ctx, s, "g1", map[string]any{"name": "g"})
		},
		"DeleteGroup": func(s *model.AuthSession) error {
			return client.DeleteGroup(ctx, s, "g1")
		},
		"ListGroups": func(s *model.AuthSession) error {
			_, err := client.ListGroups(ctx, s)
			return err
		},
		"BatchReorder": func(s *model.AuthSession) error {
			return client.BatchReorder(ctx, s, KindTasks, []string{"t1"})
		},
		"Subscribe": func(s *model.AuthSession) error {
			_, err := client.Subscribe(ctx, s)
			return err
		},
	}

	for name, call := range calls {
		if err := call(nil); !errors.Is(err, ErrNoSession) {
			t.Errorf("%s(nil session) = %v, want ErrNoSession", name, err)
		}
		if err := call(&model.AuthSession{}); !errors.Is(err, ErrNoSession) {
			t.Errorf("%s(empty session) = %v, want ErrNoSession", name, err)
		}
	}
}

func TestEventsURL(t *testing.T) {
	got, err := eventsURL("https://sync.example.com", "u1")
	if err != nil {
		t.Fatalf("eventsURL: %v", err)
	}
	want := "wss://sync.example.com/v1/users/u1/events"
	if got != want {
		t.Errorf("eventsURL = %q, want %q", got, want)
	}
}
