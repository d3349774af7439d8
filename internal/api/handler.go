package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nidhogg/sparkbot/internal/agent"
	"github.com/nidhogg/sparkbot/internal/gateway"
	"go.uber.org/zap"
)

// Archive reads turns written to long-term storage. Memory is never
// reloaded from it.
type Archive interface {
	RecentTurns(ctx context.Context, agentName string, limit int) ([]agent.Turn, error)
	IntentCounts(ctx context.Context, agentName string) (map[string]int, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine      *agent.Engine
	archive     Archive
	broadcaster *gateway.Broadcaster
	restGW      *gateway.RESTAdapter
	gw          *gateway.Gateway
	logger      *zap.Logger
}

// NewHandler creates a new API handler. archive, broadcaster, restGW and gw
// may be nil; their routes then answer 503.
func NewHandler(
	engine *agent.Engine,
	archive Archive,
	broadcaster *gateway.Broadcaster,
	restGW *gateway.RESTAdapter,
	gw *gateway.Gateway,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		engine:      engine,
		archive:     archive,
		broadcaster: broadcaster,
		restGW:      restGW,
		gw:          gw,
		logger:      logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/intents", h.listIntents)

		r.Get("/agents", h.listAgents)
		r.Post("/agents", h.createAgent)
		r.Get("/agents/{name}", h.getAgent)
		r.Post("/agents/{name}/chat", h.chatWithAgent)
		r.Get("/agents/{name}/idle", h.checkIdle)
		r.Get("/agents/{name}/transcript", h.getTranscript)

		// Archive routes
		r.Get("/agents/{name}/archive", h.getArchive)
		r.Get("/agents/{name}/intents", h.getIntentCounts)

		// Gateway routes
		r.Post("/broadcast", h.sendBroadcast)
		r.Get("/broadcasts", h.listBroadcasts)
		r.Get("/gateway/status", h.gatewayStatus)
		if h.restGW != nil {
			r.Mount("/gateway/rest", h.restGW.Routes())
		}
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"agents": len(h.engine.List()),
	})
}

type intentView struct {
	Label     string   `json:"label"`
	Threshold float64  `json:"threshold"`
	Examples  []string `json:"examples"`
}

func (h *Handler) listIntents(w http.ResponseWriter, r *http.Request) {
	defs := h.engine.Catalog().Definitions()
	out := make([]intentView, len(defs))
	for i, d := range defs {
		out[i] = intentView{Label: d.Label, Threshold: d.Threshold, Examples: d.Examples}
	}
	writeJSON(w, http.StatusOK, out)
}

// agentView is the JSON shape of an agent.
type agentView struct {
	agent.Persona
	Memory agent.Memory `json:"memory"`
}

func viewOf(a *agent.Agent) agentView {
	return agentView{Persona: a.Persona(), Memory: a.Memory()}
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.engine.List()
	out := make([]agentView, len(agents))
	for i, a := range agents {
		out[i] = viewOf(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createAgent(w http.ResponseWriter, r *http.Request) {
	var p agent.Persona
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if p.Age < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "age must not be negative"})
		return
	}
	a, err := h.engine.Register(p.Name, p.Age, p.Gender)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(a))
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := h.engine.Get(chi.URLParam(r, "name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, viewOf(a))
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	agent.Turn
	Math bool `json:"math"`
}

func (h *Handler) chatWithAgent(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	turn, err := h.engine.Think(r.Context(), chi.URLParam(r, "name"), req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrAgentNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Turn: turn, Math: turn.Kind == agent.TurnMath})
}

func (h *Handler) checkIdle(w http.ResponseWriter, r *http.Request) {
	nudge, ok, err := h.engine.CheckIdle(chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"nudge": nudge})
}

func (h *Handler) getTranscript(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	a, found := h.engine.Get(chi.URLParam(r, "name"))
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, a.Transcript(limit))
}

func (h *Handler) getArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "archive not configured"})
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	turns, err := h.archive.RecentTurns(r.Context(), chi.URLParam(r, "name"), limit)
	if err != nil {
		h.logger.Error("archive read failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "archive read failed"})
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (h *Handler) getIntentCounts(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "archive not configured"})
		return
	}
	counts, err := h.archive.IntentCounts(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.logger.Error("archive read failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "archive read failed"})
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) sendBroadcast(w http.ResponseWriter, r *http.Request) {
	if h.broadcaster == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "broadcaster not initialized"})
		return
	}
	var msg gateway.BroadcastMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if msg.Type == "" {
		msg.Type = gateway.BroadcastAnnouncement
	}
	if err := h.broadcaster.Send(r.Context(), &msg); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *Handler) listBroadcasts(w http.ResponseWriter, r *http.Request) {
	if h.broadcaster == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "broadcaster not initialized"})
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.broadcaster.History(limit))
}

func (h *Handler) gatewayStatus(w http.ResponseWriter, r *http.Request) {
	if h.gw == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "gateway not initialized"})
		return
	}
	writeJSON(w, http.StatusOK, h.gw.StatusAll())
}

// parseLimit reads ?limit=n. Missing means zero (everything).
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
