package metrics

import "github.com/prometheus/client_golang/prometheus"

// AvailabilityMetrics exposes counters/histograms for slot resolution.
type AvailabilityMetrics struct {
	requestsTotal  *prometheus.CounterVec
	degradedTotal  *prometheus.CounterVec
	resolveLatency *prometheus.HistogramVec
	cacheTotal     *prometheus.CounterVec
}

func NewAvailabilityMetrics(reg prometheus.Registerer) *AvailabilityMetrics {
	m := &AvailabilityMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lavie",
			Subsystem: "availability",
			Name:      "requests_total",
			Help:      "Total availability resolutions",
		}, []string{"status"}),
		degradedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lavie",
			Subsystem: "availability",
			Name:      "calendar_degraded_total",
			Help:      "Resolutions that failed closed on a calendar error",
		}, []string{"reason"}),
		resolveLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lavie",
			Subsystem: "availability",
			Name:      "resolve_latency_seconds",
			Help:      "Latency of a full availability resolution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lavie",
			Subsystem: "availability",
			Name:      "cache_total",
			Help:      "Availability cache lookups",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.degradedTotal, m.resolveLatency, m.cacheTotal)
	return m
}

func (m *AvailabilityMetrics) ObserveRequest(status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(status).Inc()
}

func (m *AvailabilityMetrics) ObserveDegraded(reason string) {
	if m == nil {
		return
	}
	m.degradedTotal.WithLabelValues(reason).Inc()
}

func (m *AvailabilityMetrics) ObserveResolveLatency(source string, seconds float64) {
	if m == nil {
		return
	}
	m.resolveLatency.WithLabelValues(source).Observe(seconds)
}

func (m *AvailabilityMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.WithLabelValues(result).Inc()
}

// BookingMetrics exposes counters for the booking writer.
type BookingMetrics struct {
	createdTotal  *prometheus.CounterVec
	conflictTotal prometheus.Counter
	mirrorTotal   *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		createdTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lavie",
			Subsystem: "bookings",
			Name:      "created_total",
			Help:      "Total booking create attempts",
		}, []string{"status"}),
		conflictTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lavie",
			Subsystem: "bookings",
			Name:      "conflict_total",
			Help:      "Creates rejected because the slot was already taken",
		}),
		mirrorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lavie",
			Subsystem: "bookings",
			Name:      "calendar_mirror_total",
			Help:      "Mirror events written to the professional calendar",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.createdTotal, m.conflictTotal, m.mirrorTotal)
	return m
}

func (m *BookingMetrics) ObserveCreated(status string) {
	if m == nil {
		return
	}
	m.createdTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictTotal.Inc()
}

func (m *BookingMetrics) ObserveMirror(status string) {
	if m == nil {
		return
	}
	m.mirrorTotal.WithLabelValues(status).Inc()
}

// BillingMetrics exposes counters for Asaas webhook processing.
type BillingMetrics struct {
	webhookTotal   *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
	duplicateTotal prometheus.Counter
}

func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	m := &BillingMetrics{
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lavie",
			Subsystem: "billing",
			Name:      "webhook_total",
			Help:      "Total Asaas webhook deliveries",
		}, []string{"event_type", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lavie",
			Subsystem: "billing",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of Asaas webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		duplicateTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lavie",
			Subsystem: "billing",
			Name:      "webhook_duplicate_total",
			Help:      "Webhook deliveries skipped as already processed",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.webhookTotal, m.webhookLatency, m.duplicateTotal)
	return m
}

func (m *BillingMetrics) ObserveWebhook(eventType, status string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(eventType, status).Inc()
}

func (m *BillingMetrics) ObserveWebhookLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}

func (m *BillingMetrics) ObserveDuplicate() {
	if m == nil {
		return
	}
	m.duplicateTotal.Inc()
}
