// Package metrics exposes Prometheus metrics for tool calls, craft list
// resolution and the price cache.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace for all metrics
	namespace = "craftlist"
	// Subsystem for server metrics
	subsystem = "server"
)

// Recorder receives instrumentation events. A nil *Collector is a valid
// Recorder that drops everything, so callers never need to check whether
// metrics are enabled.
type Recorder interface {
	RecordToolCall(tool string, status string, duration time.Duration)
	RecordCraftList(roots, nodes int)
	RecordPriceLookup(status string)
	SetPriceQueueDepth(depth int)
}

// Collector holds every metric the server exports.
type Collector struct {
	registry *prometheus.Registry

	toolCallsTotal   *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	craftListNodes   prometheus.Histogram
	craftListRoots   prometheus.Gauge
	priceLookups     *prometheus.CounterVec
	priceQueueDepth  prometheus.Gauge
}

// NewCollector creates a collector registered on a fresh registry.
func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		// Tool calls by tool name and outcome
		toolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tool_calls_total",
				Help:      "Total number of MCP tool calls by tool and status",
			},
			[]string{"tool", "status"},
		),

		toolCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tool_call_duration_seconds",
				Help:      "MCP tool call duration distribution",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"tool"},
		),

		craftListNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "craft_list_nodes",
				Help:      "Number of nodes in resolved craft lists",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),

		craftListRoots: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "craft_list_roots",
				Help:      "Number of output items in the most recent craft list",
			},
		),

		priceLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "price_lookups_total",
				Help:      "Price cache lookups by resulting status",
			},
			[]string{"status"},
		),

		priceQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "price_queue_depth",
				Help:      "Items waiting for a background price load",
			},
		),
	}

	metrics := []prometheus.Collector{
		c.toolCallsTotal,
		c.toolCallDuration,
		c.craftListNodes,
		c.craftListRoots,
		c.priceLookups,
		c.priceQueueDepth,
	}
	for _, metric := range metrics {
		if err := c.registry.Register(metric); err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}

	return c, nil
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordToolCall records a completed tool call.
func (c *Collector) RecordToolCall(tool string, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.toolCallsTotal.WithLabelValues(tool, status).Inc()
	c.toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordCraftList records the size of a resolved craft list.
func (c *Collector) RecordCraftList(roots, nodes int) {
	if c == nil {
		return
	}
	c.craftListRoots.Set(float64(roots))
	c.craftListNodes.Observe(float64(nodes))
}

// RecordPriceLookup records one price cache lookup.
func (c *Collector) RecordPriceLookup(status string) {
	if c == nil {
		return
	}
	c.priceLookups.WithLabelValues(status).Inc()
}

// SetPriceQueueDepth records how many items wait for a background price load.
func (c *Collector) SetPriceQueueDepth(depth int) {
	if c == nil {
		return
	}
	c.priceQueueDepth.Set(float64(depth))
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics: %w", err)
	}
	return nil
}
