// Package metrics collects and exposes Prometheus metrics for the domain
// events worth watching in production: logins, payments, posts, comments.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the slice of metrics collection the service layer uses.
// Services depend on this interface, not the Prometheus types, so tests can
// pass a no-op.
type Recorder interface {
	RecordLogin(provider string)
	RecordLoginFailure(provider string)
	RecordPayment(outcome string) // "succeeded", "declined", "error"
	RecordPostCreated()
	RecordCommentAppended()
}

// Collector implements Recorder on Prometheus counters.
type Collector struct {
	logins        *prometheus.CounterVec
	loginFailures *prometheus.CounterVec
	payments      *prometheus.CounterVec
	posts         prometheus.Counter
	comments      prometheus.Counter
}

// compile-time check that *Collector implements Recorder
var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storyhub_logins_total",
			Help: "Successful logins by identity provider.",
		}, []string{"provider"}),
		loginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storyhub_login_failures_total",
			Help: "Failed provider exchanges by identity provider.",
		}, []string{"provider"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storyhub_payments_total",
			Help: "Payment attempts by outcome.",
		}, []string{"outcome"}),
		posts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyhub_posts_created_total",
			Help: "Posts created.",
		}),
		comments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyhub_comments_appended_total",
			Help: "Comments appended.",
		}),
	}

	reg.MustRegister(c.logins, c.loginFailures, c.payments, c.posts, c.comments)

	return c
}

func (c *Collector) RecordLogin(provider string) {
	c.logins.WithLabelValues(provider).Inc()
}

func (c *Collector) RecordLoginFailure(provider string) {
	c.loginFailures.WithLabelValues(provider).Inc()
}

func (c *Collector) RecordPayment(outcome string) {
	c.payments.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordPostCreated() {
	c.posts.Inc()
}

func (c *Collector) RecordCommentAppended() {
	c.comments.Inc()
}

// Handler returns the Prometheus exposition endpoint for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop is a Recorder that records nothing. Handy default for tests.
type Nop struct{}

func (Nop) RecordLogin(string)        {}
func (Nop) RecordLoginFailure(string) {}
func (Nop) RecordPayment(string)      {}
func (Nop) RecordPostCreated()        {}
func (Nop) RecordCommentAppended()    {}
