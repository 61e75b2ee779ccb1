/*
Package types defines the core data structures shared across Herald.

The central type is EventRecord, the canonical view of one upstream
event. RawEvent is the loosely typed wire form received from the
peoply API before field defaulting; Change is what the engine hands
to the presentation side through the outbound queue.

All types here are plain data with no behavior beyond derivation
helpers, so every other package can depend on them without cycles.
*/
package types
