// Copyright 2024 Google LLC.
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

package vmtest

import (
	"sync"
	"time"

	"github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// testMetrics tracks the progress of a test run and exports per suite
// results in the Prometheus text format.
type testMetrics struct {
	mu       sync.Mutex
	total    int
	running  int
	finished int

	registry  *prometheus.Registry
	testcases *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inflight  prometheus.Gauge
}

func newTestMetrics(total int) *testMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &testMetrics{
		total:    total,
		registry: reg,
		testcases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vmtest_testcases_total",
				Help: "Test cases run per suite by result",
			},
			[]string{"suite", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vmtest_workflow_duration_seconds",
				Help:    "Wall time of a workflow's suite run",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"suite"},
		),
		inflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vmtest_workflows_running",
				Help: "Workflows currently running",
			},
		),
	}
}

func (m *testMetrics) started() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running++
	m.inflight.Inc()
}

func (m *testMetrics) done() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running--
	m.finished++
	m.inflight.Dec()
	logrus.Infof("Finished %d/%d workflows, %d running", m.finished, m.total, m.running)
}

// record counts the results of a suite.
func (m *testMetrics) record(suite string, ts *junit.Testsuite, elapsed time.Duration) {
	for _, tc := range ts.Testcases {
		result := "pass"
		switch {
		case tc.Error != nil:
			result = "error"
		case tc.Failure != nil:
			result = "fail"
		case tc.Skipped != nil:
			result = "skip"
		}
		m.testcases.WithLabelValues(suite, result).Inc()
	}
	if elapsed > 0 {
		m.duration.WithLabelValues(suite).Observe(elapsed.Seconds())
	}
}

// writeTextfile writes the metrics for the node exporter textfile collector.
func (m *testMetrics) writeTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
