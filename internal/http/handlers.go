package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"coffeecounter/internal/achievements"
	"coffeecounter/internal/core"
	applog "coffeecounter/internal/log"
)

const maxBodyBytes = 64 << 10

const dashboardCacheKey = "dashboard"

// decodeJSON reads a size-capped JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed encoding response", applog.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps domain sentinels to status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNegativePrice),
		errors.Is(err, core.ErrInvalidPrice),
		errors.Is(err, core.ErrInvalidDate):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

type unlockPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func unlockPayloads(rules []achievements.Rule) []unlockPayload {
	out := make([]unlockPayload, 0, len(rules))
	for _, r := range rules {
		out = append(out, unlockPayload{ID: r.ID, Name: r.Name, Icon: r.Icon})
	}
	return out
}

// handleCount records consumption: {"itemId": "espresso", "delta": 1}.
// Delta defaults to +1 and is clamped to a single step either way.
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		ItemID string `json:"itemId"`
		Delta  int    `json:"delta"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	itemID := sanitizeInput(req.ItemID)
	if itemID == "" {
		writeError(w, http.StatusUnprocessableEntity, "itemId is required")
		return
	}

	var (
		entry    core.DailyEntry
		unlocked []achievements.Rule
	)
	if req.Delta < 0 {
		entry, unlocked = s.tracker.Decrement(r.Context(), itemID)
	} else {
		entry, unlocked = s.tracker.Increment(r.Context(), itemID)
	}
	s.dashCache.Delete(dashboardCacheKey)

	writeJSON(w, http.StatusOK, map[string]any{
		"date":      entry.Date,
		"counts":    entry.Counts,
		"totalCost": entry.TotalCost,
		"unlocked":  unlockPayloads(unlocked),
	})
}

// handleDashboard serves the aggregate read model, briefly cached.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	if body, ok := s.dashCache.Get(dashboardCacheKey); ok {
		slog.DebugContext(r.Context(), "Dashboard cache hit")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	body, err := json.Marshal(s.tracker.Dashboard())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed encoding dashboard", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.dashCache.Set(dashboardCacheKey, body)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"achievements": s.tracker.AchievementProgress(),
	})
}

// handleItems lists the catalog (GET) or creates an item (POST).
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"items": s.tracker.Items()})
	case http.MethodPost:
		var req itemRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		price, err := req.price()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		item, err := s.tracker.AddItem(r.Context(), sanitizeInput(req.Name), sanitizeInput(req.Icon), price)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		s.dashCache.Delete(dashboardCacheKey)
		writeJSON(w, http.StatusCreated, item)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// itemRequest carries catalog item fields. The price travels as a
// decimal string ("4.50" or "4,50"); parsing happens server side so
// rounding is consistent everywhere.
type itemRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Price string `json:"price"`
}

func (req itemRequest) price() (core.Money, error) {
	cents, err := core.ParseDecimalToCents(req.Price)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// handleItemByID updates (PUT) or deletes (DELETE) /api/items/{id}.
func (s *Server) handleItemByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/items/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req itemRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		price, err := req.price()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		item, err := s.tracker.UpdateItem(r.Context(), id, sanitizeInput(req.Name), sanitizeInput(req.Icon), price)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		s.dashCache.Delete(dashboardCacheKey)
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		if err := s.tracker.RemoveItem(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		s.dashCache.Delete(dashboardCacheKey)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "PUT, DELETE")
	}
}

// handleSetPrice updates a single item price: PUT /api/prices/{id} with
// {"price": "3.00"}. History is repriced against the new table.
func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, "PUT")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/prices/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	var req struct {
		Price string `json:"price"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cents, err := core.ParseDecimalToCents(req.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.tracker.SetPrice(r.Context(), id, core.Money{Cents: cents}); err != nil {
		writeDomainError(w, err)
		return
	}
	s.dashCache.Delete(dashboardCacheKey)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	s.tracker.ResetToday(r.Context())
	s.dashCache.Delete(dashboardCacheKey)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	s.tracker.ResetAll(r.Context())
	s.dashCache.Delete(dashboardCacheKey)
	w.WriteHeader(http.StatusNoContent)
}

// handleExport downloads the full state as an attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	account := sanitizeInput(r.URL.Query().Get("account"))
	doc := s.tracker.Export(account)

	filename := "coffee-counter-export-" + doc.ExportedAt.Format("2006-01-02") + ".json"
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		slog.ErrorContext(r.Context(), "Failed encoding export", applog.FieldError, err)
	}
}
