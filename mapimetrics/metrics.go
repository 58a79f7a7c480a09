// Package mapimetrics publishes Prometheus metrics for a mapi.Pool: live and
// dead connection gauges, checkout counts, and the backoff sleeps a reconnect
// loop spends waiting.
package mapimetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus metrics for one Pool. Safe for concurrent
// use by multiple goroutines observing the same pool.
type Collector struct {
	Registry *prometheus.Registry

	gaugeLive  prometheus.Gauge
	gaugeDead  prometheus.Gauge
	counterCheckout     prometheus.Counter
	counterCheckoutFail prometheus.Counter
	counterBackoffSleep prometheus.Counter
	backoffSleepSeconds prometheus.Histogram
}

// New creates and registers a Collector against a fresh registry scoped to
// poolName.
func New(poolName string) *Collector {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"pool": poolName}

	c := &Collector{
		Registry: reg,
		gaugeLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mapi_pool_connections_live",
			Help:        "Number of pool slots currently holding a live connection",
			ConstLabels: labels,
		}),
		gaugeDead: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mapi_pool_connections_dead",
			Help:        "Number of pool slots currently awaiting reconnect",
			ConstLabels: labels,
		}),
		counterCheckout: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mapi_pool_checkouts_total",
			Help:        "Total successful Pool.Checkout calls",
			ConstLabels: labels,
		}),
		counterCheckoutFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mapi_pool_checkout_failures_total",
			Help:        "Total Pool.Checkout calls that returned an error",
			ConstLabels: labels,
		}),
		counterBackoffSleep: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mapi_pool_backoff_sleeps_total",
			Help:        "Total number of backoff sleeps taken while reconnecting",
			ConstLabels: labels,
		}),
		backoffSleepSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "mapi_pool_backoff_sleep_seconds",
			Help:        "Duration of each backoff sleep while reconnecting",
			Buckets:     prometheus.ExponentialBuckets(0.1, 2, 7),
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(
		c.gaugeLive,
		c.gaugeDead,
		c.counterCheckout,
		c.counterCheckoutFail,
		c.counterBackoffSleep,
		c.backoffSleepSeconds,
	)

	return c
}

// SetLiveDead sets the live/dead slot gauges from a pool snapshot.
func (c *Collector) SetLiveDead(live, dead int) {
	c.gaugeLive.Set(float64(live))
	c.gaugeDead.Set(float64(dead))
}

// CheckoutSucceeded increments the successful-checkout counter.
func (c *Collector) CheckoutSucceeded() {
	c.counterCheckout.Inc()
}

// CheckoutFailed increments the failed-checkout counter.
func (c *Collector) CheckoutFailed() {
	c.counterCheckoutFail.Inc()
}

// BackoffSlept records one backoff sleep of duration d.
func (c *Collector) BackoffSlept(d time.Duration) {
	c.counterBackoffSleep.Inc()
	c.backoffSleepSeconds.Observe(d.Seconds())
}
