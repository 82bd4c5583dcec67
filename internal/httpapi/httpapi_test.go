package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"jobagent/internal/bus"
	"jobagent/internal/domain"
	"jobagent/internal/events"
	"jobagent/internal/store"
)

type fakeBus struct {
	mu        sync.Mutex
	crawling  bool
	crawls    []bus.StartCrawl
	generates []bus.Generate
	genErr    error
}

func (f *fakeBus) Crawling(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.crawling, nil
}

func (f *fakeBus) StartCrawl(_ context.Context, c bus.StartCrawl) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crawls = append(f.crawls, c)
	return nil
}

func (f *fakeBus) Generate(_ context.Context, g bus.Generate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.genErr != nil {
		return f.genErr
	}
	f.generates = append(f.generates, g)
	return nil
}

func (f *fakeBus) recorded() ([]bus.StartCrawl, []bus.Generate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bus.StartCrawl(nil), f.crawls...), append([]bus.Generate(nil), f.generates...)
}

// logBuf collects relay log output; handlers write to it from server goroutines.
type logBuf struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuf) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuf) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type relay struct {
	srv  *httptest.Server
	st   store.Store
	hub  *events.Hub
	bus  *fakeBus
	proj *Projector
	logs *logBuf
}

func newRelay(t *testing.T, token string) *relay {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	hub := events.NewHub()
	fb := &fakeBus{}
	logs := &logBuf{}
	l := slog.New(slog.NewTextHandler(logs, nil))
	srv := httptest.NewServer(NewHandler(Deps{Store: st, Hub: hub, Bus: fb, AuthToken: token, Logger: l}))
	t.Cleanup(srv.Close)
	return &relay{srv: srv, st: st, hub: hub, bus: fb, proj: &Projector{Store: st, Hub: hub, Log: l}, logs: logs}
}

func (r *relay) do(t *testing.T, method, path, body, token string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, r.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestSearchValidation(t *testing.T) {
	r := newRelay(t, "")

	_, out := r.do(t, http.MethodPost, "/search", `{"query":"golang jobs","location":"Remote"}`, "")
	if out["status"] != "Error" || out["message"] == "" {
		t.Fatalf("reply = %v", out)
	}
	_, out = r.do(t, http.MethodPost, "/search", `{"query":"https://jobs.example.com","location":"Remote"}`, "")
	if out["status"] != "Started" {
		t.Fatalf("reply = %v", out)
	}
	resp, _ := r.do(t, http.MethodPost, "/search", `{`, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad body status = %d", resp.StatusCode)
	}

	crawls, _ := r.bus.recorded()
	if len(crawls) != 1 || crawls[0].Query != "https://jobs.example.com" || crawls[0].RequestID == "" {
		t.Fatalf("crawls = %+v", crawls)
	}
}

func TestGenerateAndStatus(t *testing.T) {
	r := newRelay(t, "")
	r.bus.crawling = true

	_, out := r.do(t, http.MethodPost, "/jobs/abc-1/generate", "", "")
	if out["status"] != "started" {
		t.Fatalf("reply = %v", out)
	}
	if _, gens := r.bus.recorded(); len(gens) != 1 || gens[0].JobID != "abc-1" {
		t.Fatalf("generates = %+v", gens)
	}

	resp, _ := r.do(t, http.MethodGet, "/jobs/abc-1/generate", "", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET generate status = %d", resp.StatusCode)
	}
	resp, _ = r.do(t, http.MethodPost, "/jobs/abc-1/delete", "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown action status = %d", resp.StatusCode)
	}

	_, out = r.do(t, http.MethodGet, "/status", "", "")
	if out["crawling"] != true {
		t.Fatalf("status = %v", out)
	}
}

func TestAuth(t *testing.T) {
	r := newRelay(t, "tok")

	resp, out := r.do(t, http.MethodGet, "/jobs", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if e, _ := out["error"].(map[string]any); e["code"] != "unauthorized" || e["request_id"] == "" {
		t.Fatalf("error body = %v", out)
	}
	if resp, _ := r.do(t, http.MethodGet, "/jobs", "", "tok"); resp.StatusCode != http.StatusOK {
		t.Fatalf("authorized status = %d", resp.StatusCode)
	}
	if resp, _ := r.do(t, http.MethodGet, "/health", "", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
}

func TestQueueFailureEnvelopeCarriesRequestID(t *testing.T) {
	r := newRelay(t, "")
	r.bus.mu.Lock()
	r.bus.genErr = errors.New("redis: connection refused")
	r.bus.mu.Unlock()

	req, err := http.NewRequest(http.MethodPost, r.srv.URL+"/jobs/j1/generate", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body APIError
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != codeQueueUnavailable || body.Error.RequestID != "req-42" {
		t.Fatalf("error body = %+v", body.Error)
	}
	if strings.Contains(body.Error.Message, "connection refused") {
		t.Fatalf("cause leaked to client: %q", body.Error.Message)
	}

	logs := r.logs.String()
	for _, want := range []string{"request_id=req-42", "code=queue_unavailable", "job_id=j1", "connection refused"} {
		if !strings.Contains(logs, want) {
			t.Fatalf("log missing %q:\n%s", want, logs)
		}
	}
}

func TestProjectionAndBroadcast(t *testing.T) {
	r := newRelay(t, "")
	ctx := context.Background()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(r.srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	deadline := time.Now().Add(2 * time.Second)
	for r.hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	frames := []string{
		`{"type":"crawl_started","url":"https://jobs.example.com"}`,
		`{"type":"new_job","job":{"id":"j1","title":"Go Dev","company":"Acme","match_score":77,"url":null}}`,
		`{"type":"job_update","job_id":"j1","status":"COMPLETED","application_draft":"Dear Acme"}`,
		`{"type":"job_update","job_id":"ghost","status":"COMPLETED"}`,
	}
	for _, f := range frames {
		r.proj.Handle(ctx, []byte(f))
	}

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for _, want := range frames {
		_, got, err := ws.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Fatalf("frame = %s, want %s", got, want)
		}
	}

	j, err := r.st.GetJob(ctx, "j1")
	if err != nil {
		t.Fatal(err)
	}
	if j.Title != "Go Dev" || j.ApplicationDraft != "Dear Acme" || j.Status != domain.StatusCompleted {
		t.Fatalf("stored = %+v", j)
	}
	if _, err := r.st.GetJob(ctx, "ghost"); err == nil {
		t.Fatal("update for unknown id created a row")
	}

	resp, err := http.Get(r.srv.URL + "/jobs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var jobs []domain.Job
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].ID != "j1" {
		t.Fatalf("jobs = %+v", jobs)
	}

	_, out := r.do(t, http.MethodGet, "/reset", "", "")
	if out["status"] != "cleared" {
		t.Fatalf("reset = %v", out)
	}
	if jobs, _ := r.st.ListJobs(ctx); len(jobs) != 0 {
		t.Fatalf("jobs after reset = %+v", jobs)
	}
}

func TestJobAction(t *testing.T) {
	cases := []struct {
		path, id, action string
		ok               bool
	}{
		{"/jobs/42/generate", "42", "generate", true},
		{"/jobs/a%2Fb/generate", "a%2Fb", "generate", true},
		{"/jobs/42", "", "", false},
		{"/jobs/42/", "", "", false},
		{"/other/42/generate", "", "", false},
	}
	for _, tc := range cases {
		id, action, ok := jobAction(tc.path)
		if id != tc.id || action != tc.action || ok != tc.ok {
			t.Errorf("jobAction(%q) = %q %q %v", tc.path, id, action, ok)
		}
	}
}
