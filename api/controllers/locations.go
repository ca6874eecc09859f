package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/footfall-dashboard/api/middleware"
	"github.com/angelmondragon/footfall-dashboard/api/responses"
	"github.com/angelmondragon/footfall-dashboard/internal/dashboard"
	"github.com/angelmondragon/footfall-dashboard/internal/filters"
	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
)

// LocationCatalog lists the options of one location kind.
type LocationCatalog interface {
	Kind(ctx context.Context, kind enums.LocationKind) ([]filters.Option, error)
}

// ListLocations returns the options of the kind named in the path and records
// them on the caller's dashboard, so later selections validate against them.
func ListLocations(catalog LocationCatalog, sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := enums.ParseLocationKind(chi.URLParam(r, "kind"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid location kind"))
			return
		}

		opts, err := catalog.Kind(r.Context(), kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if opts == nil {
			opts = []filters.Option{}
		}

		if id := middleware.SessionIDFromContext(r.Context()); id != "" && sessions != nil {
			if s, err := sessions.Get(r.Context(), id); err == nil {
				_ = s.Controller.SetOptions(kind, opts)
			} else {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "could not record location options on session")
			}
		}
		responses.WriteSuccess(w, map[string]any{"kind": kind, "options": opts})
	}
}

// loadMissingOptions fetches kind's options when the session has none recorded,
// typically because the listing failed when the session was created. A failed
// fetch leaves the kind unloaded.
func loadMissingOptions(ctx context.Context, catalog LocationCatalog, s *dashboard.Session, kind enums.LocationKind, logg *logger.Logger) {
	if catalog == nil || s.Controller.HasOptions(kind) {
		return
	}
	opts, err := catalog.Kind(ctx, kind)
	if err != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"location_kind": kind.String(),
			"error":         err.Error(),
		}), "location listing still unavailable")
		return
	}
	if opts == nil {
		opts = []filters.Option{}
	}
	_ = s.Controller.SetOptions(kind, opts)
}
