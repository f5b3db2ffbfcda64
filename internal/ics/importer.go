package ics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "eventplanner/internal/log"
	"eventplanner/internal/model"
	"eventplanner/internal/store"
)

// Sink receives the events imported from one source.
type Sink interface {
	Import(source string, events []model.Event) store.ImportResult
}

// ImporterConfig configures an Importer.
type ImporterConfig struct {
	Sources  []Source
	Location *time.Location
	// HorizonDays / BackfillDays bound expansion around now.
	HorizonDays  int
	BackfillDays int
}

// Importer pulls ICS feeds into the event store.
type Importer struct {
	fetcher *Fetcher
	sink    Sink
	cfg     ImporterConfig
	now     func() time.Time
}

func NewImporter(fetcher *Fetcher, sink Sink, cfg ImporterConfig) *Importer {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Importer{fetcher: fetcher, sink: sink, cfg: cfg, now: time.Now}
}

// EventID builds the stable store id of an imported occurrence.
func EventID(sourceID string, occ Occurrence) string {
	return fmt.Sprintf("ics:%s:%s:%s", sourceID, occ.Event.UID, occ.InstanceKey)
}

// Run fetches every source once and imports what it can. A source that
// fails to fetch or parse keeps its previously imported events.
func (im *Importer) Run(ctx context.Context) error {
	now := im.now().In(im.cfg.Location)
	expandCfg := ExpandConfig{
		Location:   im.cfg.Location,
		RangeStart: now.AddDate(0, 0, -im.cfg.BackfillDays),
		RangeEnd:   now.AddDate(0, 0, im.cfg.HorizonDays),
	}

	results, errs := im.fetcher.FetchAll(ctx, im.cfg.Sources)
	for _, res := range results {
		parsed, err := ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics: parse %s: %w", res.Source.ID, err))
			continue
		}
		expanded, err := ExpandOccurrences(parsed, expandCfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics: expand %s: %w", res.Source.ID, err))
			continue
		}

		events := ToEvents(res.Source.ID, expanded.Occurrences)
		r := im.sink.Import(res.Source.ID, events)
		appLog.Info("ics import completed",
			"id", res.Source.ID,
			"from_cache", res.FromCache,
			"occurrences", len(events),
			"added", r.Added,
			"updated", r.Updated,
			"removed", r.Removed,
		)
	}
	return errors.Join(errs...)
}

// ToEvents converts occurrences into store events.
func ToEvents(sourceID string, occs []Occurrence) []model.Event {
	out := make([]model.Event, 0, len(occs))
	for _, occ := range occs {
		out = append(out, model.Event{
			ID:          EventID(sourceID, occ),
			Title:       occ.Event.Summary,
			Date:        occ.Date,
			Location:    occ.Event.Location,
			Status:      plannerStatus(occ.Event),
			Description: occ.Event.Description,
		})
	}
	return out
}

// Schedule runs the importer on a cron spec until the returned stop func is
// called. The first run happens on the first tick, not immediately.
func (im *Importer) Schedule(ctx context.Context, spec string) (stop func(), err error) {
	c := cron.New(cron.WithLocation(im.cfg.Location))
	_, err = c.AddFunc(spec, func() {
		if err := im.Run(ctx); err != nil {
			appLog.Error("scheduled ics import had errors", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ics: invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("ics import scheduled", "refresh", spec, "sources", len(im.cfg.Sources))

	return func() {
		<-c.Stop().Done()
	}, nil
}
