package metrics

import (
	"github.com/nightgate/nightgate/pkg/model"
)

// Recorder forwards admission events to the package-level collectors.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) ObserveDecision(policy string, verdict model.Verdict) {
	DecisionsTotal.WithLabelValues(policy, string(verdict.Reason), verdict.Label()).Inc()
	if !verdict.Accept {
		RejectedTotal.Inc()
	}
}

func (r *Recorder) ObserveNeed(attribute string, need int) {
	NeedRemaining.WithLabelValues(attribute).Set(float64(need))
}

func (r *Recorder) ObserveAdmitted(admitted int) {
	Admitted.Set(float64(admitted))
}

func (r *Recorder) ObserveRun(status model.RunStatus) {
	RunsTotal.WithLabelValues(string(status)).Inc()
}
