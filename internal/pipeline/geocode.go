package pipeline

import (
	"context"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/carebridge/leadsync-cli/internal/model"
	"github.com/carebridge/leadsync-cli/pkg/geocode"
)

// defaultGeocodeWorkers bounds the geocoding pool.
const defaultGeocodeWorkers = 10

// NormalizeAddress appends the regional suffix the geocoder needs when the
// address doesn't already carry one. The "ON" probe is a plain substring
// check over the upper-cased address, matching the established behavior:
// any address containing "on" (Ontario, Toronto, London...) skips the
// province suffix and gets only ", Canada" appended when missing.
func NormalizeAddress(addr string) string {
	if !strings.Contains(strings.ToUpper(addr), "ON") {
		return addr + ", Ontario, Canada"
	}
	if !strings.Contains(addr, "Canada") {
		return addr + ", Canada"
	}
	return addr
}

// GeocodeStats summarizes one geocoding pass.
type GeocodeStats struct {
	Attempted int
	Geocoded  int
	Failed    int
}

// GeocodeRows resolves coordinates for rows that have an address but no
// coordinates yet, through a bounded worker pool. Rows that already carry
// both coordinates are skipped without a lookup, so re-runs are free. A
// failed or unmatched lookup leaves the row's coordinates absent; no row's
// failure affects its siblings.
func GeocodeRows(ctx context.Context, gc geocode.Client, rows []*model.LeadRow, workers int) GeocodeStats {
	if workers <= 0 {
		workers = defaultGeocodeWorkers
	}

	var pending []*model.LeadRow
	for _, row := range rows {
		if row.HasCoordinates() || row.Address == "" {
			continue
		}
		pending = append(pending, row)
	}

	log := zap.L().With(zap.Int("pending", len(pending)), zap.Int("rows", len(rows)))
	if len(pending) == 0 {
		log.Info("geocoding: nothing to resolve")
		return GeocodeStats{}
	}
	log.Info("geocoding addresses", zap.Int("workers", workers))

	var geocoded, failed atomic.Int64
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, row := range pending {
		row := row
		g.Go(func() error {
			result, err := gc.Geocode(gctx, NormalizeAddress(row.Address))
			switch {
			case err != nil:
				failed.Add(1)
				zap.L().Warn("geocode failed",
					zap.String("lead_id", row.LeadID),
					zap.Error(err),
				)
			case result.Matched:
				lat, lon := result.Lat, result.Lon
				row.Lat = &lat
				row.Lon = &lon
				geocoded.Add(1)
			default:
				failed.Add(1)
			}

			if n := completed.Add(1); n%50 == 0 {
				log.Info("geocoding progress",
					zap.Int64("completed", n),
					zap.Int64("geocoded", geocoded.Load()),
				)
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	stats := GeocodeStats{
		Attempted: len(pending),
		Geocoded:  int(geocoded.Load()),
		Failed:    int(failed.Load()),
	}
	log.Info("geocoding complete",
		zap.Int("geocoded", stats.Geocoded),
		zap.Int("failed", stats.Failed),
	)
	return stats
}
