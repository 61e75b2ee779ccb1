/*
Package engine is the event synchronization core.

The engine polls the upstream provider on a fixed cadence, diffs the
discovered events against the persisted view, classifies each as new,
updated or unchanged, and buffers new/updated changes in an outbound
queue for the presentation collaborator to drain on its own cadence.

# Tick

One tick runs the expiration sweep, captures the next watermark
candidate, fetches everything modified after the current watermark,
applies the per-event classify pipeline, and only then advances the
watermark. A fetch or durable-write failure aborts the tick with the
watermark unchanged, so the next tick retries the same window.

The watermark candidate is captured before the fetch: an event
modified during the fetch window is reprocessed on the next tick
rather than skipped, which is safe because a payload no newer than
the stored timestamp never reclassifies.

# Concurrency

Ticks are single-flight: a cadence firing that finds the previous
tick still running is dropped, not queued. DrainOutbound is the one
call that crosses in from outside and is safe against a tick in
progress.
*/
package engine
