// Package probe provides ready-made health.Dependency implementations for
// common infrastructure: process memory, file freshness, SQL databases, HTTP
// services, Redis and Kafka.
//
// Each probe takes a health.Descriptor for its identity and policy and fills
// in a sensible dependency type when none is set. Probes never own the
// clients handed to them; Build, which constructs clients from a Spec,
// returns a closer for the ones it created.
//
// # Basic Usage
//
//	db, _ := sql.Open("postgres", dsn)
//	dep, err := probe.NewSQL(health.Descriptor{
//	    ID:      "orders-db",
//	    Urgency: health.UrgencyRequired,
//	}, db)
//
//	manager.LaunchPinger(dep)
package probe
