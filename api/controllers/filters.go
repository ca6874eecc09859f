package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/footfall-dashboard/api/middleware"
	"github.com/angelmondragon/footfall-dashboard/api/responses"
	"github.com/angelmondragon/footfall-dashboard/api/validators"
	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
)

const maxLocationIDLength = 128

type locationRequest struct {
	Kind string `json:"kind" validate:"required,location_kind"`
	ID   string `json:"id" validate:"max=128"`
}

type dateRangeRequest struct {
	Preset string     `json:"preset" validate:"omitempty,date_preset"`
	From   *time.Time `json:"from" validate:"required_with=To"`
	To     *time.Time `json:"to" validate:"required_with=From"`
}

// FiltersView returns the session's current filters.
func FiltersView(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := sessions.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, s.Controller.Filters())
	}
}

// UpdateLocation switches kind when no id is given, otherwise selects the id.
// Options missing for kind are fetched from catalog first.
func UpdateLocation(sessions Sessions, catalog LocationCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wait, err := validators.ParseQueryBool(r, "wait", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body locationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseLocationKind(body.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid location kind"))
			return
		}
		s, err := sessions.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loadMissingOptions(r.Context(), catalog, s, kind, logg)
		id := validators.SanitizeString(body.ID, maxLocationIDLength)
		if id == "" {
			_, err = s.Controller.SwitchKind(kind)
		} else {
			_, err = s.Controller.SetLocation(kind, id)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		afterMutation(w, r, s, wait)
	}
}

// UpdateDateRange applies a named preset or an explicit custom range.
func UpdateDateRange(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wait, err := validators.ParseQueryBool(r, "wait", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body dateRangeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		s, err := sessions.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if body.From != nil && body.To != nil {
			preset := strings.TrimSpace(body.Preset)
			if preset != "" && !strings.EqualFold(preset, string(enums.DatePresetCustom)) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "explicit bounds require the custom preset"))
				return
			}
			_, err = s.Controller.SetCustomRange(*body.From, *body.To)
		} else {
			preset, parseErr := enums.ParseDatePreset(body.Preset)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid date preset"))
				return
			}
			_, err = s.Controller.SelectPreset(preset)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		afterMutation(w, r, s, wait)
	}
}
