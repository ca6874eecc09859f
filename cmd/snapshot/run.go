package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/angelmondragon/footfall-dashboard/internal/dashboard"
	"github.com/angelmondragon/footfall-dashboard/internal/filters"
	"github.com/angelmondragon/footfall-dashboard/internal/locations"
	"github.com/angelmondragon/footfall-dashboard/pkg/config"
	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
	"github.com/angelmondragon/footfall-dashboard/pkg/trafficapi"
)

const dateLayout = "2006-01-02"

type runOptions struct {
	Kind   string
	ID     string
	Preset string
	From   string
	To     string
	List   bool
	Pretty bool
	Now    func() time.Time
}

// run resolves the requested filters, refreshes once and writes the settled snapshot as JSON.
func run(ctx context.Context, out io.Writer, cfg *config.ReportConfig, opts runOptions, logg *logger.Logger) error {
	tz, err := cfg.Dashboard.Location()
	if err != nil {
		return err
	}
	kind, err := enums.ParseLocationKind(opts.Kind)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid location kind")
	}
	if strings.TrimSpace(opts.Preset) == "" {
		opts.Preset = cfg.Dashboard.DefaultPreset
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	client, err := trafficapi.NewClient(cfg.Upstream.BaseURL,
		trafficapi.WithToken(cfg.Upstream.Token),
		trafficapi.WithTimeout(cfg.Upstream.Timeout),
	)
	if err != nil {
		return err
	}
	catalog, err := locations.NewCatalog(client, locations.WithLogger(logg))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	if opts.Pretty {
		enc.SetIndent("", "  ")
	}

	if opts.List {
		options, err := catalog.Kind(ctx, kind)
		if err != nil {
			return err
		}
		return enc.Encode(options)
	}

	ctrl := filters.NewController(filters.WithClock(now), filters.WithLocation(tz))
	for k, options := range catalog.Load(ctx) {
		if err := ctrl.SetOptions(k, options); err != nil {
			return err
		}
	}
	if id := strings.TrimSpace(opts.ID); id != "" {
		if _, err := ctrl.SetLocation(kind, id); err != nil {
			return err
		}
	} else if _, err := ctrl.SwitchKind(kind); err != nil {
		return err
	}
	if err := applyDateRange(ctrl, opts, tz); err != nil {
		return err
	}

	coord, err := dashboard.NewCoordinator(client,
		dashboard.WithLogger(logg),
		dashboard.WithTimezone(tz),
		dashboard.WithTimeout(cfg.Dashboard.RefreshTimeout),
		dashboard.WithClock(now),
	)
	if err != nil {
		return err
	}
	defer coord.Close()

	current := ctrl.Filters()
	logg.Info(logg.WithRefresh(ctx, 0, string(current.Location.Kind), current.Location.ID), "fetching snapshot")
	if _, err := coord.Refresh(ctx, current); err != nil {
		return err
	}
	return enc.Encode(coord.Snapshot())
}

func applyDateRange(ctrl *filters.Controller, opts runOptions, tz *time.Location) error {
	from, to := strings.TrimSpace(opts.From), strings.TrimSpace(opts.To)
	if from != "" || to != "" {
		if from == "" || to == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "-from and -to must be given together")
		}
		start, err := time.ParseInLocation(dateLayout, from, tz)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid -from date")
		}
		end, err := time.ParseInLocation(dateLayout, to, tz)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid -to date")
		}
		_, err = ctrl.SetCustomRange(start, end)
		return err
	}

	preset := enums.DatePresetToday
	if strings.TrimSpace(opts.Preset) != "" {
		parsed, err := enums.ParseDatePreset(opts.Preset)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date preset")
		}
		preset = parsed
	}
	_, err := ctrl.SelectPreset(preset)
	return err
}
