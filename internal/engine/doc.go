// Package engine orchestrates catalog refresh cycles and owns the
// published catalog snapshot.
//
// A refresh fetches the remote document, unwraps the hosting-API
// envelope when the source calls for it, parses and filters entries,
// and atomically replaces the snapshot. A failed refresh never touches
// the previously published catalog. Downloads and probes run against
// the current snapshot through the coordinator and prober the engine
// owns.
package engine
