// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the process-wide Prometheus metrics for the
// batch proxy: request/batch counts, backend call latency, worker count,
// and the coalescing ratio (backend calls avoided by batching).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batch_proxy_requests_accepted_total",
		Help: "Total caller requests accepted at the public entry point.",
	})
	requestsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_proxy_requests_rejected_total",
		Help: "Total caller requests rejected, labeled by reason.",
	}, []string{"reason"})
	batchesDispatched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batch_proxy_batches_dispatched_total",
		Help: "Total batches for which the inference backend returned one row per data item.",
	})
	batchRequestsHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "batch_proxy_batch_requests",
		Help:    "Number of caller requests coalesced per dispatched batch.",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
	})
	batchDataItemsHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "batch_proxy_batch_data_items",
		Help:    "Number of data items coalesced per dispatched batch.",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512},
	})
	backendCallDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "batch_proxy_backend_call_duration_seconds",
		Help:    "Latency of backend embedding calls.",
		Buckets: prometheus.DefBuckets,
	})
	backendCallErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_proxy_backend_call_errors_total",
		Help: "Total backend call failures, labeled by kind.",
	}, []string{"kind"})
	callsAvoided = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batch_proxy_backend_calls_avoided_total",
		Help: "Estimated backend calls avoided by coalescing (requests in batch - 1, summed).",
	})
	workersLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "batch_proxy_workers_live",
		Help: "Number of per-key worker goroutines currently tracked by the Manager.",
	})
	repliesAbandoned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batch_proxy_replies_abandoned_total",
		Help: "Total dispatch results dropped because the caller's context was already done when the result was ready.",
	})
)

func init() {
	prometheus.MustRegister(
		requestsAccepted,
		requestsRejected,
		batchesDispatched,
		batchRequestsHistogram,
		batchDataItemsHistogram,
		backendCallDuration,
		backendCallErrors,
		callsAvoided,
		workersLive,
		repliesAbandoned,
	)
}

// RequestAccepted records that the entry point admitted a caller request.
func RequestAccepted() { requestsAccepted.Inc() }

// RequestRejected records that the entry point rejected a caller request,
// labeled with a short, low-cardinality reason such as "empty_inputs" or
// "bad_json".
func RequestRejected(reason string) { requestsRejected.WithLabelValues(reason).Inc() }

// ObserveBatch records the shape of a batch once its backend call has
// succeeded with a correctly shaped response; failed batches are not
// recorded here. requests is the number of coalesced callers, items is the
// aggregate data-item count sent to the backend in one call.
func ObserveBatch(requests, items int) {
	batchesDispatched.Inc()
	batchRequestsHistogram.Observe(float64(requests))
	batchDataItemsHistogram.Observe(float64(items))
	if requests > 1 {
		callsAvoided.Add(float64(requests - 1))
	}
}

// ObserveBackendCall records the latency of one backend call.
func ObserveBackendCall(d time.Duration) {
	backendCallDuration.Observe(d.Seconds())
}

// BackendCallError records a failed backend call, labeled with a short
// kind such as "transport", "deserialize", or "shape_mismatch".
func BackendCallError(kind string) { backendCallErrors.WithLabelValues(kind).Inc() }

// SetWorkersLive updates the live-worker gauge to n.
func SetWorkersLive(n int) { workersLive.Set(float64(n)) }

// ReplyAbandoned records that a dispatch result could not be delivered
// because the caller's context was already done.
func ReplyAbandoned() { repliesAbandoned.Inc() }

// Handler returns the HTTP handler that serves the Prometheus exposition
// format for every metric registered in this package.
func Handler() http.Handler { return promhttp.Handler() }
