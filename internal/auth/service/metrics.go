package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts auth outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	logins      *prometheus.CounterVec
	lockouts    prometheus.Counter
	signups     *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	resets      *prometheus.CounterVec
	revocations *prometheus.CounterVec
}

// NewMetrics creates the auth collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by result code.",
		}, []string{"result"}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "lockouts_total",
			Help:      "Accounts locked after repeated failures.",
		}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "signups_total",
			Help:      "Successful signups by mode (tenant or invite).",
		}, []string{"mode"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "refreshes_total",
			Help:      "Refresh-token rotations by result code.",
		}, []string{"result"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "password_resets_total",
			Help:      "Password reset flow events by stage.",
		}, []string{"stage"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "session_revocations_total",
			Help:      "Sessions revoked by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.logins, m.lockouts, m.signups, m.refreshes, m.resets, m.revocations)
	return m
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return string(errorCode(err))
}

func (m *Metrics) login(err error) {
	if m != nil {
		m.logins.WithLabelValues(resultLabel(err)).Inc()
	}
}

func (m *Metrics) lockout() {
	if m != nil {
		m.lockouts.Inc()
	}
}

func (m *Metrics) signup(mode string) {
	if m != nil {
		m.signups.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) refresh(err error) {
	if m != nil {
		m.refreshes.WithLabelValues(resultLabel(err)).Inc()
	}
}

func (m *Metrics) reset(stage string) {
	if m != nil {
		m.resets.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) revoked(reason string, n int) {
	if m != nil && n > 0 {
		m.revocations.WithLabelValues(reason).Add(float64(n))
	}
}
