/*
Package announce is the Discord delivery surface.

On its own 60-second cadence it drains the engine's outbound queue
and mirrors each change into a single text channel: new events get a
formatted announcement, updated events edit the announcement in
place. Messages for events that have started stand as history and are
merely forgotten locally.
*/
package announce
