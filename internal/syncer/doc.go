// Package syncer replays queued farm-record operations against the hosted
// farm API.
//
// A pass drains the pending items sequentially. Connectivity is probed
// before the batch and between items; a dropped connection stops the pass
// and leaves the remainder pending for the next trigger. Failures are
// classified: structured errors that need user input park the item for
// confirmation, everything else retries up to the configured cap before the
// item is marked failed for good.
package syncer
