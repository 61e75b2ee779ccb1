package engine

import (
	"context"
	"time"

	"github.com/heraldbot/herald/pkg/clock"
	"github.com/heraldbot/herald/pkg/metrics"
	"github.com/heraldbot/herald/pkg/types"
)

// tick runs one reconciliation cycle: sweep expired events, fetch the
// delta above the watermark, classify and apply each payload, then
// advance the watermark. Any fetch or durable-write error leaves the
// watermark untouched; the next tick retries the same window.
func (e *Engine) tick(ctx context.Context) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.TickDuration)
		metrics.TicksTotal.Inc()
		metrics.EventsTracked.Set(float64(e.store.Len()))
		metrics.OutboundQueueDepth.Set(float64(e.outbound.Len()))
	}()

	e.sweep()

	// Captured before the fetch so nothing modified during the fetch
	// window is skipped; reprocessing next tick is harmless.
	entry := e.clock.Now()

	raw, err := e.client.FetchEventsSince(ctx, e.orgID, e.watermark)
	if err != nil {
		metrics.TickFailures.Inc()
		e.logger.Error().Err(err).
			Str("watermark", clock.Format(e.watermark)).
			Msg("Event fetch failed, retrying next tick")
		return
	}

	for _, payload := range raw {
		if err := e.apply(payload); err != nil {
			metrics.TickFailures.Inc()
			e.logger.Error().Err(err).Msg("Durable write failed, aborting tick")
			return
		}
	}

	e.watermark = entry
}

// apply runs the per-event classify pipeline. Integrity violations
// skip the payload and return nil; only a durable-write failure is an
// error, which aborts the tick.
func (e *Engine) apply(payload types.RawEvent) error {
	if payload.URLID == nil || *payload.URLID == "" {
		metrics.IntegrityViolations.Inc()
		e.logger.Warn().Msg("Payload missing urlId, skipping")
		return nil
	}
	id := *payload.URLID

	if payload.UpdatedAt == nil {
		metrics.IntegrityViolations.Inc()
		e.logger.Warn().Str("event_id", id).Msg("Payload missing updatedAt, skipping")
		return nil
	}
	updatedAt, err := clock.Parse(*payload.UpdatedAt)
	if err != nil {
		metrics.IntegrityViolations.Inc()
		e.logger.Warn().Err(err).Str("event_id", id).Msg("Payload has unreadable updatedAt, skipping")
		return nil
	}

	classification := types.ClassificationNew
	if stored, known := e.store.LastUpdated(id); known {
		switch clock.Compare(stored, updatedAt) {
		case clock.Future:
			classification = types.ClassificationUpdated
		case clock.Equal:
			return nil
		case clock.Past:
			// The upstream reported an older modification than we
			// already hold. Never downgrade.
			metrics.IntegrityViolations.Inc()
			e.logger.Warn().
				Str("event_id", id).
				Str("stored", clock.Format(stored)).
				Str("payload", clock.Format(updatedAt)).
				Msg("Upstream updatedAt regressed, keeping stored record")
			return nil
		}
	}

	record := e.buildRecord(id, payload, updatedAt)
	if err := e.store.Upsert(record); err != nil {
		return err
	}
	if classification == types.ClassificationUpdated && clock.Compare(e.clock.Now(), record.StartAt) != clock.Future {
		// An edit that moves the start into the past is not announced;
		// the next sweep removes the event.
		e.logger.Info().Str("event_id", id).Msg("Event moved into the past, not announcing")
		return nil
	}
	e.outbound.Append(types.Change{Record: record, Classification: classification})

	switch classification {
	case types.ClassificationNew:
		metrics.EventsDiscovered.Inc()
		e.logger.Info().Str("event_id", id).Str("title", record.Title).Msg("Discovered event")
	case types.ClassificationUpdated:
		metrics.EventsUpdated.Inc()
		e.logger.Info().Str("event_id", id).Str("title", record.Title).Msg("Event metadata changed")
	}
	return nil
}

// buildRecord applies the field-defaulting rules: absent strings take
// the "null" literal, an absent or unreadable start date takes the
// sentinel instant, and the link is derived from the id.
func (e *Engine) buildRecord(id string, payload types.RawEvent, updatedAt time.Time) types.EventRecord {
	startAt := clock.Sentinel
	if payload.StartDate != nil {
		parsed, err := clock.Parse(*payload.StartDate)
		if err != nil {
			e.logger.Warn().Err(err).Str("event_id", id).Msg("Payload has unreadable startDate, using sentinel")
		} else {
			startAt = parsed
		}
	}

	return types.EventRecord{
		ID:          id,
		Title:       stringField(payload.Title),
		Description: stringField(payload.Description),
		StartAt:     startAt,
		UpdatedAt:   updatedAt,
		Place:       stringField(payload.LocationName),
		Link:        types.Link(id),
	}
}

// sweep removes every event whose start is non-strictly in the past.
// Removal is local only: nothing is emitted to the outbound queue and
// nothing upstream or on Discord is touched.
func (e *Engine) sweep() {
	now := e.clock.Now()
	for _, rec := range e.store.All() {
		if clock.Compare(now, rec.StartAt) == clock.Future {
			continue
		}
		if err := e.store.Remove(rec.ID); err != nil {
			e.logger.Error().Err(err).Str("event_id", rec.ID).Msg("Failed to remove expired event")
			continue
		}
		metrics.EventsExpired.Inc()
		e.logger.Info().
			Str("event_id", rec.ID).
			Str("started_at", clock.Format(rec.StartAt)).
			Msg("Event started, no longer tracking")
	}
}

func stringField(v *string) string {
	if v == nil {
		return types.MissingFieldLiteral
	}
	return *v
}
