package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// NewHandler returns the relay's routes wrapped in the middleware chain.
func NewHandler(d Deps) http.Handler {
	l := d.Logger
	if l == nil {
		l = slog.Default()
	}
	mux := http.NewServeMux()

	hh := HealthHandler{Hub: d.Hub}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Jobs
	jh := JobsHandler{Store: d.Store, Bus: d.Bus, Log: l}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/jobs/", jh.Action) // POST /jobs/{id}/generate
	mux.HandleFunc("/reset", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.Reset,
	}))

	// Crawl
	ch := CrawlHandler{Bus: d.Bus, Log: l}
	mux.HandleFunc("/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Status,
	}))
	mux.HandleFunc("/search", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ch.Search,
	}))

	// Live stream
	wh := &WSHandler{Hub: d.Hub, Log: l, Upgrader: websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(d.AllowedOrigins),
	}}
	mux.HandleFunc("/ws", wh.Serve)

	return Chain(mux,
		RequestID,
		Recover(l),
		AccessLog(l),
		Cors(d.AllowedOrigins),
		Auth(d.AuthToken),
	)
}

// originChecker accepts requests without Origin (non-browser clients) and the
// configured browser origins.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}
