/*
Package upstream talks to peoply.app.

It performs the two HTTP interactions the engine needs: the one-shot
organization resolution (an HTML scrape of the public organization
page for the stable UUID Next.js embeds in it) and the repeated
incremental event fetch against the JSON API, filtered by that UUID
and a watermark timestamp.

Each request carries a 10-second total deadline and the client never
retries on its own; retrying is the engine's job on the next tick.
*/
package upstream
