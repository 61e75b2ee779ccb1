/*
Package clock owns time for Herald: the UTC time source, the
ISO-8601 millisecond-Z codec, and the three-way temporal comparator
the reconciler builds its decisions on.

Every timestamp that crosses a package boundary is explicit UTC;
naive timestamps are rejected at Parse.
*/
package clock
