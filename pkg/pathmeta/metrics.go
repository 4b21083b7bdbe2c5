package pathmeta

import "time"

// StoreMetrics records per-operation outcomes for a metadata store.
//
// Implementations must tolerate a nil receiver so callers can pass nil when
// metrics are disabled, with zero overhead. The Prometheus implementation
// lives in pkg/metrics/prometheus; the instrumented store decorator in
// store/instrumented is the only caller.
type StoreMetrics interface {
	// ObserveOp records one completed operation with its duration and
	// outcome. op is the lower-case operation name (put, get, delete,
	// delete_subtree, move, list_children, put_listing).
	ObserveOp(op string, duration time.Duration, err error)
}
