/*
Package metrics provides the Prometheus collector for the storage
engine.

The collector owns a private registry so multiple engines can coexist
in one process without duplicate-registration panics. It counts writes
by tier and outcome, dedup hits, delta and compression decisions, and
cache traffic by level, and observes compression ratios and object
sizes. Handler exposes the registry for scraping; a disabled collector
turns every record call into a no-op.
*/
package metrics
