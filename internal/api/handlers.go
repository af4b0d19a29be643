package api

import (
	"net/http"
	"strconv"
	"time"

	"wallet-score/internal/domain"
	"wallet-score/internal/watchlist"
)

// recentChangesLimit is how many change events GET /watchlist returns.
const recentChangesLimit = 20

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	result, err := s.scorer.Score(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type batchRequest struct {
	Wallets []string `json:"wallets"`
}

type batchResponse struct {
	Results []interface{} `json:"results"`
	Count   int           `json:"count"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	items, err := s.scorer.ScoreBatch(r.Context(), req.Wallets)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := batchResponse{Results: make([]interface{}, len(items)), Count: len(items)}
	for i, item := range items {
		if item.Err != nil {
			body := errorBody(item.Err)
			body.Wallet = item.ID
			resp.Results[i] = body
			continue
		}
		resp.Results[i] = item.Result
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type historyResponse struct {
	Wallet  string                `json:"wallet"`
	Records []*domain.ScoreRecord `json:"records"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	id := r.PathValue("id")
	records, err := s.scorer.History(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []*domain.ScoreRecord{}
	}
	s.writeJSON(w, http.StatusOK, historyResponse{Wallet: id, Records: records})
}

type watchRequest struct {
	Wallet string `json:"wallet"`
}

type watchResponse struct {
	Status        string         `json:"status"`
	Wallet        domain.Account `json:"wallet"`
	CurrentScore  int            `json:"currentScore,omitempty"`
	Grade         domain.Grade   `json:"grade,omitempty"`
	WatchlistSize int            `json:"watchlistSize"`
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Wallet == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "wallet address required"})
		return
	}

	entry, err := s.watchlist.Add(r.Context(), req.Wallet)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, watchResponse{
		Status:        "added",
		Wallet:        entry.Account,
		CurrentScore:  entry.LastScore,
		Grade:         entry.LastGrade,
		WatchlistSize: s.watchlist.Len(),
	})
}

func (s *Server) handleUnwatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.watchlist.Remove(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, watchResponse{
		Status:        "removed",
		Wallet:        domain.Account(id),
		WatchlistSize: s.watchlist.Len(),
	})
}

type watchEntryView struct {
	domain.WatchEntry
	ScoreChange *int `json:"scoreChange"`
}

type watchlistResponse struct {
	Count         int                  `json:"count"`
	Wallets       []watchEntryView     `json:"wallets"`
	RecentChanges []domain.ChangeEvent `json:"recentChanges"`
}

func (s *Server) handleWatchlist(w http.ResponseWriter, _ *http.Request) {
	entries := s.watchlist.List()
	views := make([]watchEntryView, len(entries))
	for i, e := range entries {
		views[i] = watchEntryView{WatchEntry: e, ScoreChange: e.LastDelta()}
	}
	s.writeJSON(w, http.StatusOK, watchlistResponse{
		Count:         len(views),
		Wallets:       views,
		RecentChanges: s.watchlist.RecentChanges(recentChangesLimit),
	})
}

type rescoreResponse struct {
	*domain.ScoreResult
	ChangeInfo *watchlist.ChangeInfo `json:"changeInfo"`
	IsWatched  bool                  `json:"isWatched"`
}

func (s *Server) handleRescore(w http.ResponseWriter, r *http.Request) {
	res, err := s.watchlist.Rescore(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rescoreResponse{
		ScoreResult: res.Result,
		ChangeInfo:  res.Change,
		IsWatched:   res.Watched,
	})
}

type bulkRescoreResponse struct {
	*watchlist.BulkResult
	AlertCount int `json:"alertCount"`
}

func (s *Server) handleBulkRescore(w http.ResponseWriter, r *http.Request) {
	res, err := s.watchlist.BulkRescore(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bulkRescoreResponse{BulkResult: res, AlertCount: len(res.Significant)})
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.watchlist.Report())
}

const noChangesMessage = "No significant changes to report"

type alertPreviewResponse struct {
	Preview      *watchlist.Alert `json:"preview"`
	ChangesCount int              `json:"changesCount"`
	Message      string           `json:"message,omitempty"`
}

func (s *Server) handleAlertPreview(w http.ResponseWriter, _ *http.Request) {
	alert := s.watchlist.Alert()
	if alert == nil {
		s.writeJSON(w, http.StatusOK, alertPreviewResponse{Message: noChangesMessage})
		return
	}
	s.writeJSON(w, http.StatusOK, alertPreviewResponse{Preview: alert, ChangesCount: alert.Changes})
}

type alertPublishResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
	ChangesReported int    `json:"changesReported,omitempty"`
	Subscribers     int    `json:"subscribers"`
}

func (s *Server) handleAlertPublish(w http.ResponseWriter, _ *http.Request) {
	alert := s.watchlist.Alert()
	if alert == nil {
		s.writeJSON(w, http.StatusOK, alertPublishResponse{Status: "skipped", Message: noChangesMessage})
		return
	}

	delivered := 0
	if s.hub != nil {
		delivered = s.hub.PublishAlert(alert)
	}
	s.writeJSON(w, http.StatusOK, alertPublishResponse{
		Status:          "posted",
		ChangesReported: alert.Changes,
		Subscribers:     delivered,
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	n := s.scorer.Cache().Clear()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "Cache cleared", "cleared": n})
}

type healthResponse struct {
	Status        string      `json:"status"`
	Timestamp     time.Time   `json:"timestamp"`
	Cache         interface{} `json:"cache"`
	WatchlistSize int         `json:"watchlistSize"`
	Subscribers   int         `json:"subscribers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Timestamp:     time.Now().UTC(),
		Cache:         s.scorer.Cache().Stats(),
		WatchlistSize: s.watchlist.Len(),
	}
	if s.hub != nil {
		resp.Subscribers = s.hub.Subscribers()
	}
	s.writeJSON(w, http.StatusOK, resp)
}
