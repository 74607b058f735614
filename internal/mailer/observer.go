package mailer

import "github.com/hackgods/clinic-operations/internal/metrics"

// MetricsObserver counts dispatch outcomes.
func MetricsObserver(m *metrics.Metrics) Observer {
	return ObserverFunc(func(_ Message, outcome Outcome, _ error) {
		m.ObserveEmail(string(outcome))
	})
}
