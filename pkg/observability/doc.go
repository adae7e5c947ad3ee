/*
Package observability turns engine lifecycle hooks into logs and metrics.

LoggingHooks writes one structured record per run, node and tool event.
Metrics exports Prometheus counters and histograms for the same events.
Both return a domain.LifecycleHooks, so they can be combined:

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := domain.ComposeHooks(observability.LoggingHooks(logger), metrics.Hooks())
*/
package observability
