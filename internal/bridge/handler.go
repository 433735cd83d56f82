package bridge

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ncviewer/ncviewer/internal/log"
)

// maxEventBytes bounds a submitted payload.
const maxEventBytes = 16 << 20

// Handler returns the bridge routes, mounted under the configured base path.
// Each route answers preflight first, then authenticates, then checks the
// method.
func (c *Channel) Handler() http.Handler {
	base := strings.TrimRight(c.cfg.BasePath, "/")
	mux := http.NewServeMux()
	mux.HandleFunc(base+"/poll", c.guard(http.MethodGet, c.handlePoll))
	mux.HandleFunc(base+"/event", c.guard(http.MethodPost, c.handleEvent))
	mux.HandleFunc(base+"/health", c.guard(http.MethodGet, c.handleHealth))
	mux.HandleFunc("/", c.handleNotFound)
	return mux
}

func (c *Channel) guard(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w)
			return
		}
		if !c.authorized(r) {
			writeText(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if r.Method != method {
			writeText(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if c.isStopped() {
			writeText(w, http.StatusServiceUnavailable, "stopped")
			return
		}
		next(w, r)
	}
}

// GET {base}/poll?after=V
func (c *Channel) handlePoll(w http.ResponseWriter, r *http.Request) {
	after, err := strconv.ParseUint(r.URL.Query().Get("after"), 10, 64)
	if err != nil {
		after = 0
	}
	env, ok, err := c.Poll(after)
	if err != nil {
		writeText(w, http.StatusServiceUnavailable, "stopped")
		return
	}
	if !ok {
		applyCORS(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// POST {base}/event
func (c *Channel) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		writeText(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if _, err := c.Submit(string(body)); err != nil {
		writeText(w, http.StatusServiceUnavailable, "stopped")
		return
	}
	writeText(w, http.StatusAccepted, "accepted")
}

// GET {base}/health
func (c *Channel) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

// handleNotFound authenticates before answering 404 so unauthenticated
// callers cannot tell routes apart.
func (c *Channel) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writePreflight(w)
		return
	}
	if !c.authorized(r) {
		writeText(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeText(w, http.StatusNotFound, "not found")
}

func applyCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", TokenHeader+", Content-Type")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

func writePreflight(w http.ResponseWriter) {
	applyCORS(w)
	w.Header().Set("Access-Control-Max-Age", "600")
	w.WriteHeader(http.StatusNoContent)
}

func writeText(w http.ResponseWriter, status int, text string) {
	applyCORS(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	applyCORS(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.ErrorErr(log.CatBridge, "failed to encode JSON response", err)
	}
}
