// Package handler is the thin HTTP layer over the audit pipeline. It
// delegates to the service and keeps transport concerns isolated; raw
// pipeline errors are never surfaced to clients.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/audit/service"
	"github.com/fsuels/auditledger/internal/audit/verify"
	"github.com/fsuels/auditledger/internal/audit/writer"
	"github.com/fsuels/auditledger/internal/platform/middleware"
)

// Pipeline is the service surface the handler needs.
type Pipeline interface {
	Record(ctx context.Context, mutation audit.Mutation) writer.Outcome
	History(ctx context.Context, ownerID string, limit int) ([]audit.Event, error)
	Verify(ctx context.Context, events []audit.Event, links []audit.ChainLink) (verify.Result, error)
	ExportHistory(ctx context.Context, ownerID string) (service.Export, error)
	DeadLetters(ctx context.Context, limit int) ([]audit.DeadLetter, error)
}

type Handler struct {
	pipeline     Pipeline
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(pipeline Pipeline, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{pipeline: pipeline, logger: logger, jwtValidator: jwtValidator}
}

// Register wires the audit routes onto the chi router. Mutation ingress
// is internal and unauthenticated (network-isolated); the read surface
// requires a bearer token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/mutations", h.handleMutation)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/v1/audit/history", h.handleHistory)
		r.Post("/v1/audit/verify", h.handleVerify)
		r.Get("/v1/audit/export", h.handleExport)
		r.Get("/v1/audit/deadletters", h.handleDeadLetters)
	})
}

// handleMutation accepts an "entity changed" notification. The response
// is 202 regardless of the audit outcome: audit failures dead-letter and
// must never fail the business operation that reported the change.
func (h *Handler) handleMutation(w http.ResponseWriter, r *http.Request) {
	var m audit.Mutation
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid mutation payload")
		return
	}
	if m.Collection == "" || m.EntityID == "" || m.Type == "" {
		h.writeError(w, http.StatusBadRequest, "collection, entityId and type are required")
		return
	}

	ctx := r.Context()
	if m.Actor != nil {
		if m.Actor.IPAddress == "" {
			m.Actor.IPAddress = middleware.GetClientIP(ctx)
		}
		if m.Actor.UserAgent == "" {
			m.Actor.UserAgent = middleware.GetUserAgent(ctx)
		}
	}

	outcome := h.pipeline.Record(ctx, m)

	resp := mutationResponse{State: string(outcome.State)}
	if outcome.State == writer.StatePersisted {
		resp.Sequence = outcome.Event.Sequence
		resp.EventID = outcome.Event.ID
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		h.writeError(w, http.StatusBadRequest, "owner is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.pipeline.History(r.Context(), owner, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "history query failed", "owner", owner, "error", err)
		h.writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, historyResponse{Owner: owner, Events: events})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid verify payload")
			return
		}
	}

	result, err := h.pipeline.Verify(r.Context(), req.Events, req.Links)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "verification failed to run", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "verification unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		h.writeError(w, http.StatusBadRequest, "owner is required")
		return
	}
	export, err := h.pipeline.ExportHistory(r.Context(), owner)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "export failed", "owner", owner, "error", err)
		h.writeError(w, http.StatusInternalServerError, "export unavailable")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="audit-history-`+owner+`.json"`)
	h.writeJSON(w, http.StatusOK, export)
}

func (h *Handler) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.pipeline.DeadLetters(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "dead-letter query failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "dead letters unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, deadLetterResponse{Records: records})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}
