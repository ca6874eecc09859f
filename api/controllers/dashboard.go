package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/footfall-dashboard/api/middleware"
	"github.com/angelmondragon/footfall-dashboard/api/responses"
	"github.com/angelmondragon/footfall-dashboard/api/validators"
	"github.com/angelmondragon/footfall-dashboard/internal/dashboard"
	"github.com/angelmondragon/footfall-dashboard/internal/filters"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
)

// Sessions resolves the dashboard of the authenticated session.
type Sessions interface {
	Get(ctx context.Context, id string) (*dashboard.Session, error)
}

type dashboardView struct {
	Snapshot dashboard.Snapshot `json:"snapshot"`
	Status   dashboard.Status   `json:"status"`
}

type refreshAccepted struct {
	Filters filters.Filters `json:"filters"`
	Seq     uint64          `json:"seq"`
}

// DashboardView returns the current snapshot without triggering a refresh.
func DashboardView(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := sessions.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboardView{
			Snapshot: s.Coordinator.Snapshot(),
			Status:   s.Coordinator.Status(),
		})
	}
}

// DashboardRefresh re-runs the refresh with the current filters.
func DashboardRefresh(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wait, err := validators.ParseQueryBool(r, "wait", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		s, err := sessions.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if wait {
			writeSettled(w, r, s)
			return
		}
		seq, current := s.Coordinator.TriggerFrom(s.Controller)
		responses.WriteSuccessStatus(w, http.StatusAccepted, refreshAccepted{Filters: current, Seq: seq})
	}
}

// afterMutation answers a filter change. The controller subscription has already
// triggered a background refresh; with wait it is superseded by a synchronous one.
func afterMutation(w http.ResponseWriter, r *http.Request, s *dashboard.Session, wait bool) {
	if wait {
		writeSettled(w, r, s)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusAccepted, refreshAccepted{
		Filters: s.Controller.Filters(),
		Seq:     s.Coordinator.Status().Issued,
	})
}

// writeSettled refreshes synchronously. Refresh failures are reported on the snapshot, not as HTTP errors.
func writeSettled(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	_, _ = s.Coordinator.RefreshFrom(r.Context(), s.Controller)
	responses.WriteSuccess(w, dashboardView{
		Snapshot: s.Coordinator.Snapshot(),
		Status:   s.Coordinator.Status(),
	})
}
