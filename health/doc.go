// Package health aggregates the health of the dependencies a process relies on.
//
// A Dependency reports a CheckResult graded on four levels, from worst to
// best: OUTAGE, MAJOR, MINOR and OK. Each dependency carries an Urgency that
// caps how far its failure can pull down the system status: a REQUIRED
// dependency can cause an outage, a WEAK one at most a MINOR.
//
// # Core Concepts
//
// The Checker evaluates dependencies on a bounded worker pool. Every
// evaluation is bounded by the dependency's timeout, concurrent evaluations
// of the same id share one execution, and whatever goes wrong (timeout,
// panic, overload, cancellation) is turned into an OUTAGE result instead of
// an error. Results are folded into a ResultSet, one per round.
//
// A Pinger samples a dependency in the background and serves the latest
// sample. A short streak of failures after a success is reported as MINOR.
//
// The Manager keeps the registry, schedules pingers and fans events out to
// Listeners.
//
// # Basic Usage
//
//	db, _ := health.NewPingDependency(health.Descriptor{
//	    ID:      "orders-db",
//	    Urgency: health.UrgencyRequired,
//	    Type:    health.TypeOtherDatabase,
//	    Timeout: 2 * time.Second,
//	}, sqlDB.PingContext)
//
//	m := health.NewManager(health.ManagerConfig{AppName: "orders"})
//	defer m.Shutdown(context.Background())
//
//	if _, err := m.LaunchPinger(db); err != nil {
//	    return err
//	}
//
//	rs, _ := m.Evaluate(ctx)
//	fmt.Println(rs.SystemStatus())
//
// # Listening for Changes
//
//	m.AddListener(health.ListenerFuncs{
//	    Changed: func(dep health.Dependency, prev, next *health.CheckResult) {
//	        log.Printf("%s is now %s", next.ID(), next.Status())
//	    },
//	})
package health
