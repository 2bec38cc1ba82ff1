// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lint

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run metrics. The CLI reads these for its summary; long-lived embedders
// (watch mode, CI daemons) can scrape the default registry.
var (
	metricRulesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vectorlint",
		Name:      "rules_evaluated_total",
		Help:      "Rules executed across all files, including cache hits.",
	})

	metricRequestFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vectorlint",
		Name:      "request_failures_total",
		Help:      "Provider calls that failed or returned malformed output.",
	})

	metricFindings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vectorlint",
		Name:      "findings_total",
		Help:      "Findings emitted, by severity.",
	}, []string{"severity"})

	metricGroundingMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vectorlint",
		Name:      "grounding_misses_total",
		Help:      "Violations whose evidence could not be grounded confidently.",
	})

	metricCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vectorlint",
		Name:      "cache_hits_total",
		Help:      "Rule evaluations served from the result cache.",
	})
)
