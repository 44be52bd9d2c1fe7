// Package observability provides the per-workspace append-only event log,
// subscription matching, and the fsnotify-based dispatcher that delivers
// filtered, batched event notifications to subscribed agents.
package observability
