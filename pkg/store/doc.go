/*
Package store persists Herald's view of upstream events.

The Store interface exposes the two logical mappings the reconciler
works against (id to latest record, id to last observed modification
timestamp) backed by a single SQLite table so that a restart neither
republishes nor loses events.

Timestamps are stored in ISO-8601 UTC-Z text form; the table is
created on first open when the database file is empty.
*/
package store
