package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benchtop/benchtop/internal/domain"
)

func TestClient_ListTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks" {
			t.Errorf("path = %q, want /tasks", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]domain.Task{
			{ID: "t1", Project: "p", Status: "Pending"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	tasks, err := c.ListTasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Errorf("tasks = %+v, want one task t1", tasks)
	}
}

func TestClient_ListTasks_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	if _, err := c.ListTasks(context.Background()); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestClient_Run_NormalizesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/run" {
			t.Errorf("%s %s, want POST /run", r.Method, r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["instance_id"] != "t1" {
			t.Errorf("instance_id = %q, want t1", req["instance_id"])
		}
		// Backend emits lowercase status
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "completed",
			"success": true,
			"patch":   "+new line",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	result, err := c.Run(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != domain.RunCompleted {
		t.Errorf("Status = %q, want %q", result.Status, domain.RunCompleted)
	}
	if !result.Success {
		t.Error("Success should be true")
	}
}

func TestClient_LatestResult_Null(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/results/t1" {
			t.Errorf("path = %q, want /results/t1", r.URL.Path)
		}
		w.Write([]byte(`{"result": null}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	result, err := c.LatestResult(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil for null payload", result)
	}
}

func TestClient_StartBatch_Body(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	if err := c.StartBatch(context.Background(), 0, nil); err != nil {
		t.Fatal(err)
	}
	if got["limit"].(float64) != 0 {
		t.Errorf("limit = %v, want 0", got["limit"])
	}
	if ids, ok := got["ids"].([]any); !ok || len(ids) != 0 {
		t.Errorf("ids = %v, want empty array (not null)", got["ids"])
	}
}

func TestClient_Report_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http 404", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no report", http.StatusNotFound)
		}},
		{"missing content", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New(srv.URL, nil)
			_, err := c.Report(context.Background())
			if !errors.Is(err, ErrReportUnavailable) {
				t.Errorf("err = %v, want ErrReportUnavailable", err)
			}
		})
	}
}

func TestClient_Report_Content(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"content": "12 resolved"})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	report, err := c.Report(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report != "12 resolved" {
		t.Errorf("report = %q, want %q", report, "12 resolved")
	}
}

func TestClient_BatchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.BatchStatus{
			IsRunning: true, Processed: 3, Total: 10,
			Logs: []string{"[1] t1: PASS"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	status, err := c.BatchStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsRunning || status.Processed != 3 || status.Total != 10 {
		t.Errorf("status = %+v", status)
	}
}
