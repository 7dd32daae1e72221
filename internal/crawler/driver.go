package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/edgard/what2eat/internal/catalog"
	"github.com/edgard/what2eat/internal/menu"
)

// Summary counts the outcomes of one run.
type Summary struct {
	Platform menu.Platform
	Mode     string
	IDs      int
	Skipped  int
	Written  int
	Removed  int
	Excluded int
	Failed   int
	Fetched  int
	Duration time.Duration
}

// Driver runs a crawl for one source.
type Driver struct {
	source      Source
	catalog     *catalog.Catalog
	normalizer  *menu.Normalizer
	minProducts int
	delay       time.Duration
	out         io.Writer
	logger      *slog.Logger
}

// NewDriver creates a driver. Progress lines are written to out.
func NewDriver(source Source, cat *catalog.Catalog, normalizer *menu.Normalizer, minProducts int, delay time.Duration, out io.Writer, logger *slog.Logger) *Driver {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		source:      source,
		catalog:     cat,
		normalizer:  normalizer,
		minProducts: minProducts,
		delay:       delay,
		out:         out,
		logger:      logger.With("component", "crawler", "platform", string(source.Platform())),
	}
}

// Run crawls every known id of the source. Ids that already have a
// restaurant file are skipped, so an interrupted run can be resumed.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{Platform: d.source.Platform(), Mode: "crawl"}

	ids, err := d.restaurantIDs(ctx)
	if err != nil {
		return summary, err
	}
	summary.IDs = len(ids)
	d.logger.InfoContext(ctx, "Crawling restaurants", "ids", len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
		if d.catalog.Exists(id) {
			summary.Skipped++
			continue
		}

		raw, fetched, err := d.rawPayload(ctx, id)
		if fetched {
			summary.Fetched++
		}
		if err != nil {
			if ctx.Err() != nil {
				summary.Duration = time.Since(start)
				return summary, ctx.Err()
			}
			d.fail(ctx, &summary, id, err)
		} else {
			d.process(ctx, &summary, id, raw, fetched)
		}

		if fetched {
			if err := d.wait(ctx); err != nil {
				summary.Duration = time.Since(start)
				return summary, err
			}
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// Renormalize re-applies the filter and the threshold to every cached raw
// payload without network access.
func (d *Driver) Renormalize(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{Platform: d.source.Platform(), Mode: "renormalize"}

	ids, err := d.catalog.RawIDs(d.source.Platform())
	if err != nil {
		return summary, err
	}
	summary.IDs = len(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
		raw, err := d.catalog.LoadRaw(d.source.Platform(), id)
		if err != nil {
			d.fail(ctx, &summary, id, err)
			continue
		}
		d.process(ctx, &summary, id, raw, false)
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// restaurantIDs returns the persisted index or builds it from the listings.
func (d *Driver) restaurantIDs(ctx context.Context) ([]string, error) {
	p := d.source.Platform()
	ids, err := d.catalog.LoadIndex(p)
	if err == nil {
		d.logger.InfoContext(ctx, "Using persisted restaurant index", "ids", len(ids))
		return ids, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}

	regions, err := d.source.Regions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}

	seen := make(map[string]bool)
	ids = []string{}
	for i, region := range regions {
		if i > 0 {
			if err := d.wait(ctx); err != nil {
				return nil, err
			}
		}
		found, err := d.source.ListRestaurants(ctx, region)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			d.logger.WarnContext(ctx, "Region listing failed", "region", region, "error", err)
			continue
		}
		added := 0
		for _, id := range found {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			added++
		}
		d.logger.InfoContext(ctx, "Region listed", "region", region, "found", len(found), "new", added, "total", len(ids))
	}

	if err := d.catalog.SaveIndex(p, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// rawPayload returns the cached payload or fetches it. fetched reports
// whether the network was used.
func (d *Driver) rawPayload(ctx context.Context, id string) (raw []byte, fetched bool, err error) {
	raw, err = d.catalog.LoadRaw(d.source.Platform(), id)
	if err == nil {
		return raw, false, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return nil, false, err
	}
	raw, err = d.source.FetchRestaurant(ctx, id)
	if err != nil {
		return nil, true, err
	}
	return raw, true, nil
}

func (d *Driver) process(ctx context.Context, summary *Summary, id string, raw []byte, fresh bool) {
	p := d.source.Platform()

	decoded, err := d.source.Decode(id, raw)
	if err != nil {
		d.fail(ctx, summary, id, err)
		return
	}
	if fresh {
		if err := d.catalog.SaveRaw(p, id, raw); err != nil {
			d.logger.WarnContext(ctx, "Failed to cache raw payload", "id", id, "error", err)
		}
	}

	restaurant, excluded := d.normalizer.Normalize(p, decoded)
	switch {
	case excluded:
		if _, err := d.catalog.Remove(id); err != nil {
			d.fail(ctx, summary, id, err)
			return
		}
		summary.Excluded++
		fmt.Fprintf(d.out, "%s excluded\n", id)
	case menu.Qualifies(restaurant, d.minProducts):
		if err := d.catalog.Save(restaurant); err != nil {
			d.fail(ctx, summary, id, err)
			return
		}
		summary.Written++
		fmt.Fprintf(d.out, "%s %d\n", id, len(restaurant.Products))
	default:
		existed, err := d.catalog.Remove(id)
		if err != nil {
			d.fail(ctx, summary, id, err)
			return
		}
		summary.Removed++
		d.logger.DebugContext(ctx, "Restaurant below threshold", "id", id, "products", len(restaurant.Products), "had_file", existed)
		fmt.Fprintf(d.out, "%s removed\n", id)
	}
}

func (d *Driver) fail(ctx context.Context, summary *Summary, id string, err error) {
	summary.Failed++
	d.logger.WarnContext(ctx, "Restaurant failed", "id", id, "error", err)
	fmt.Fprintf(d.out, "%s error: %v\n", id, err)
}

func (d *Driver) wait(ctx context.Context) error {
	if d.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
