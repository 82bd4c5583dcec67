package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"jobagent/internal/bus"
)

type CrawlHandler struct {
	Bus Commander
	Log *slog.Logger
}

type searchRequest struct {
	Query    string `json:"query"`
	Location string `json:"location"`
}

type searchReply struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h CrawlHandler) Status(w http.ResponseWriter, r *http.Request) {
	on, err := h.Bus.Crawling(r.Context())
	if err != nil {
		failWith(w, r, h.Log, http.StatusBadGateway, codeRedisUnavailable, "crawl status unavailable", err)
		return
	}
	writeJSON(w, map[string]bool{"crawling": on})
}

// Search queues a crawl of the given start url. A query that is not a url is
// answered with status "Error" and HTTP 200, which clients treat as accepted.
func (h CrawlHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, codeBadRequest, "invalid json body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if !strings.HasPrefix(req.Query, "http") {
		writeJSON(w, searchReply{Status: "Error", Message: "URL must start with http(s)."})
		return
	}

	reqID := RequestIDFrom(r.Context())
	cmd := bus.StartCrawl{Query: req.Query, Location: req.Location, RequestID: reqID}
	if err := h.Bus.StartCrawl(r.Context(), cmd); err != nil {
		failWith(w, r, h.Log, http.StatusBadGateway, codeQueueUnavailable, "could not queue crawl", err)
		return
	}
	h.Log.Info("crawl queued", "request_id", reqID, "url", req.Query)
	writeJSON(w, searchReply{Status: "Started"})
}
