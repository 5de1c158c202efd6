// Package resilience provides concurrency isolation for dependency checks.
//
// A Bulkhead caps the number of concurrent operations sharing one slot pool,
// either failing fast (MaxWait == 0) or waiting a bounded time for a slot.
// A KeyedBulkhead applies an independent cap to every key, which is how the
// health engine limits outstanding evaluations per dependency id.
//
// # Usage
//
//	perID := resilience.NewKeyedBulkhead(resilience.BulkheadConfig{
//	    MaxConcurrent: 2,
//	})
//
//	if err := perID.Acquire(ctx, "orders-db"); err != nil {
//	    // resilience.ErrBulkheadFull: two checks already outstanding
//	}
//	defer perID.Release("orders-db")
package resilience
