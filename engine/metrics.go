package engine

import (
	"github.com/dukerupert/liftcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	inspectionsStarted   prometheus.Counter
	inspectionsCompleted *prometheus.CounterVec
	inspectionsReopened  prometheus.Counter
	defectsSaved         *prometheus.CounterVec
	statusEscalations    prometheus.Counter
	rejections           *prometheus.CounterVec
	photosAccepted       prometheus.Counter
	photosRejected       *prometheus.CounterVec
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		inspectionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "liftcheck",
			Name:      "inspections_started_total",
			Help:      "Inspections created (idempotent starts that returned an existing inspection are not counted).",
		}),
		inspectionsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liftcheck",
			Name:      "inspections_completed_total",
			Help:      "Inspections completed, by final operational status.",
		}, []string{"crane_status"}),
		inspectionsReopened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "liftcheck",
			Name:      "inspections_reopened_total",
			Help:      "Completed inspections reopened for editing.",
		}),
		defectsSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liftcheck",
			Name:      "defects_saved_total",
			Help:      "Defect details saved, by severity.",
		}, []string{"severity"}),
		statusEscalations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "liftcheck",
			Name:      "status_escalations_total",
			Help:      "Automatic escalations to Unsafe to Operate.",
		}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liftcheck",
			Name:      "rejections_total",
			Help:      "Engine operations rejected by validation, by error code.",
		}, []string{"code"}),
		photosAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "liftcheck",
			Name:      "photos_accepted_total",
			Help:      "Photos committed to an inspection.",
		}),
		photosRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liftcheck",
			Name:      "photos_rejected_total",
			Help:      "Photos skipped during intake, by error code.",
		}, []string{"code"}),
	}
}

func (m *Metrics) started() {
	if m != nil {
		m.inspectionsStarted.Inc()
	}
}

func (m *Metrics) completed(status liftcheck.OperationalStatus) {
	if m != nil {
		m.inspectionsCompleted.WithLabelValues(string(status)).Inc()
	}
}

func (m *Metrics) reopened() {
	if m != nil {
		m.inspectionsReopened.Inc()
	}
}

func (m *Metrics) defectSaved(severity liftcheck.Severity) {
	if m != nil {
		m.defectsSaved.WithLabelValues(string(severity)).Inc()
	}
}

func (m *Metrics) escalated() {
	if m != nil {
		m.statusEscalations.Inc()
	}
}

func (m *Metrics) rejected(err error) {
	if m != nil && liftcheck.IsRejection(err) {
		m.rejections.WithLabelValues(liftcheck.ErrorCode(err)).Inc()
	}
}

func (m *Metrics) photos(accepted int, rejected []liftcheck.PhotoRejection) {
	if m == nil {
		return
	}
	m.photosAccepted.Add(float64(accepted))
	for _, r := range rejected {
		m.photosRejected.WithLabelValues(r.Code).Inc()
	}
}
