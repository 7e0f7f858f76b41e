package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"listing-delta/models"
	"listing-delta/services"
	"listing-delta/utils"
)

// Runner executes one monitoring run.
type Runner interface {
	Run(ctx context.Context, urls []string, criteria models.Criteria) (*models.RunResult, error)
}

// RunRequest is the body of POST /api/runs. Zero price bounds are unset.
type RunRequest struct {
	URLs     []string `json:"urls"`
	Keyword  string   `json:"keyword"`
	MinPrice float64  `json:"minPrice"`
	MaxPrice float64  `json:"maxPrice"`
}

type runResponse struct {
	*models.RunResult
	Current  int `json:"current"`
	Previous int `json:"previous"`
	New      int `json:"new"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RunHandler serves run requests. Runs are serialized: a request arriving
// while another run is in progress waits for it.
type RunHandler struct {
	mu          sync.Mutex
	runner      Runner
	defaultURLs []string
	logger      *utils.Logger
}

func NewRunHandler(runner Runner, defaultURLs []string, logger *utils.Logger) *RunHandler {
	return &RunHandler{runner: runner, defaultURLs: defaultURLs, logger: logger}
}

// Router returns the API routes.
func (h *RunHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/runs", h.HandleRun).Methods(http.MethodPost)
	return r
}

func (h *RunHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RunHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
	}

	minPrice, maxPrice := services.Bound(req.MinPrice), services.Bound(req.MaxPrice)
	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "minPrice exceeds maxPrice"})
		return
	}

	urls := req.URLs
	if len(urls) == 0 {
		urls = h.defaultURLs
	}
	criteria := models.Criteria{Keyword: req.Keyword, MinPrice: minPrice, MaxPrice: maxPrice}

	h.mu.Lock()
	res, err := h.runner.Run(r.Context(), urls, criteria)
	h.mu.Unlock()

	switch {
	case errors.Is(err, services.ErrNoURLs):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		h.logger.Error("[api] Run failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	status := http.StatusOK
	if !res.Fetched {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, runResponse{
		RunResult: res,
		Current:   len(res.Current),
		Previous:  len(res.Previous),
		New:       len(res.New),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
