/*
Package metrics exposes Herald's Prometheus collectors and a small
component health registry.

Collectors are package-level and registered at init; the engine and
the announcer update them inline. Handler and HealthHandler serve
/metrics and /healthz when the host enables the listen address.
*/
package metrics
