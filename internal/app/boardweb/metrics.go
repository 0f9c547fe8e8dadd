package boardweb

import "github.com/eventboard/project/internal/platform/metrics"

var (
	liveSessions = metrics.NewGauge(metrics.Opts{
		Name: "eventboard_live_sessions",
		Help: "Viewer sessions with an open event stream.",
	})

	actionsTotal = metrics.NewCounterVec(metrics.Opts{
		Name: "eventboard_actions_total",
		Help: "Board actions handled, by action and outcome.",
	}, []string{"action", "outcome"})

	patchesTotal = metrics.NewCounterVec(metrics.Opts{
		Name: "eventboard_stream_patches_total",
		Help: "Element patches written to event streams, by target.",
	}, []string{"selector"})
)

func init() {
	metrics.Default.MustRegister(liveSessions, actionsTotal, patchesTotal)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
