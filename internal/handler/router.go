package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lucasmaia/atende/internal/model/order"
	"github.com/lucasmaia/atende/pkg/utils"
)

// SessionReader is the read-only store slice the operator endpoints need.
type SessionReader interface {
	Load(ctx context.Context, identity string) (*order.Session, error)
}

// NewRouter wires the HTTP surface: health, operator session inspection and
// (when the cloud channel is active) the webhook routes.
func NewRouter(sessions SessionReader, webhookRoutes func(chi.Router)) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/sessions/{identity}", handleGetSession(sessions))
	})

	if webhookRoutes != nil {
		webhookRoutes(r)
	}

	return r
}

// handleGetSession lets an operator inspect the stored record for one
// identity, including the cases the agent refuses to touch on its own
// (corrupt payloads, unreachable backend).
func handleGetSession(sessions SessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := chi.URLParam(r, "identity")
		if identity == "" {
			utils.RespondError(w, http.StatusBadRequest, "identity is required")
			return
		}

		sess, err := sessions.Load(r.Context(), identity)
		switch {
		case errors.Is(err, order.ErrNotFound):
			utils.RespondError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, order.ErrCorruptRecord):
			utils.RespondError(w, http.StatusInternalServerError, "session record corrupt")
		case errors.Is(err, order.ErrStoreUnavailable):
			utils.RespondError(w, http.StatusServiceUnavailable, "session store unavailable")
		case err != nil:
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
		default:
			utils.RespondJSON(w, http.StatusOK, sess)
		}
	}
}
