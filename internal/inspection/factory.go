// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package inspection

import (
	"net/http"

	"github.com/ManuGH/netinspect/internal/analysis"
	"github.com/ManuGH/netinspect/internal/config"
	"github.com/ManuGH/netinspect/internal/resilience"
)

// OllamaAnalyzers builds a fresh client per run so prompt and model edits
// apply to the next run, while hc and breaker are shared across runs.
func OllamaAnalyzers(hc *http.Client, breaker *resilience.CircuitBreaker) AnalyzerFactory {
	return func(cfg config.AnalysisConfig) (Analyzer, error) {
		client, err := analysis.NewClient(cfg, analysis.WithHTTPClient(hc), analysis.WithBreaker(breaker))
		if err != nil {
			return nil, err
		}
		return analysis.NewAnalyzer(client), nil
	}
}
