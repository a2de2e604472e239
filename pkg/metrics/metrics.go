// Copyright 2025 walteh LLC
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

// Package metrics turns operation log events into Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/walteh/housekeep/pkg/oplog"
)

const namespace = "housekeep"

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// 📊 Sink is an oplog.Sink that counts actions, bytes and runs
type Sink struct {
	actions  *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time // by run id
}

// 🏭 NewSink registers the metrics with reg. A nil reg uses the default
// registerer.
func NewSink(reg prometheus.Registerer) *Sink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Sink{
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Per-path actions recorded by maintenance operations.",
		}, []string{"op", "action"}),
		bytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Bytes covered by per-path actions.",
		}, []string{"op", "action"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished operation runs by outcome.",
		}, []string{"op", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of operation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"op"}),
		started: map[string]time.Time{},
	}
}

var _ oplog.Sink = (*Sink)(nil)

func (s *Sink) Record(_ context.Context, ev oplog.Event) error {
	switch ev.Action {
	case oplog.ActionStarted:
		s.mu.Lock()
		s.started[ev.RunID] = ev.Time
		s.mu.Unlock()
	case oplog.ActionFinished:
		outcome := OutcomeSuccess
		if ev.Error != "" {
			outcome = OutcomeError
		}
		s.runs.WithLabelValues(ev.Op, outcome).Inc()

		s.mu.Lock()
		start, ok := s.started[ev.RunID]
		delete(s.started, ev.RunID)
		s.mu.Unlock()
		if ok {
			s.duration.WithLabelValues(ev.Op).Observe(ev.Time.Sub(start).Seconds())
		}
	default:
		s.actions.WithLabelValues(ev.Op, ev.Action).Inc()
		if ev.Size > 0 {
			s.bytes.WithLabelValues(ev.Op, ev.Action).Add(float64(ev.Size))
		}
	}
	return nil
}

// Handler serves the metrics of gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
