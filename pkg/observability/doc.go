/*
Package observability turns runner lifecycle hooks into prometheus metrics
and structured log lines.

	m := observability.NewMetrics(prometheus.NewRegistry())
	hooks := observability.Chain(m.Hooks(), observability.LogHooks(logger))
	r, _ := runner.New(tr, ws, runner.WithHooks(hooks))
	http.Handle("/metrics", m.Handler())
*/
package observability
