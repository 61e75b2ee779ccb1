/*
Package log provides structured logging for Herald using zerolog.

The package maintains a global logger configured once at startup via
Init. Components obtain child loggers with WithComponent, which tags
every entry with the component name so that the engine, the upstream
client and the announcer can be filtered apart in the output.

Console output (human readable, RFC3339 timestamps) is the default;
JSON output is available for log shippers.
*/
package log
