package controllers

import (
	"net/http"

	"github.com/angelmondragon/footfall-dashboard/api/responses"
	"github.com/angelmondragon/footfall-dashboard/internal/filters"
)

func ListPresets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, filters.Presets())
	}
}
