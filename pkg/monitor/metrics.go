/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package monitor

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "devmon.monitor"

	metricProbeTotal      = "devmon_probe_total"
	metricTransitionTotal = "devmon_transition_total"
	metricSweepDuration   = "devmon_sweep_duration_seconds"

	monitorReachability = "reachability"
	monitorMode         = "mode"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	probeCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	transitionCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	sweepHistogram metric.Float64Histogram
)

func initMeter() {
	meter := otel.Meter(meterName)

	probes, err := meter.Int64Counter(
		metricProbeTotal,
		metric.WithDescription("Probes issued by the device monitors, by outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}

	probeCounter = probes

	transitions, err := meter.Int64Counter(
		metricTransitionTotal,
		metric.WithDescription("State transitions applied to endpoints"),
	)
	if err != nil {
		otel.Handle(err)
	}

	transitionCounter = transitions

	hist, err := meter.Float64Histogram(
		metricSweepDuration,
		metric.WithDescription("Wall time of one monitor sweep"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}

	sweepHistogram = hist
}

func recordProbe(ctx context.Context, monitor, outcome string) {
	meterOnce.Do(initMeter)
	if probeCounter == nil {
		return
	}

	probeCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("monitor", monitor),
		attribute.String("outcome", outcome),
	))
}

func recordTransition(ctx context.Context, monitor, state string) {
	meterOnce.Do(initMeter)
	if transitionCounter == nil {
		return
	}

	transitionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("monitor", monitor),
		attribute.String("state", state),
	))
}

func recordSweep(ctx context.Context, monitor string, d time.Duration) {
	meterOnce.Do(initMeter)
	if sweepHistogram == nil {
		return
	}

	sweepHistogram.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("monitor", monitor)))
}
