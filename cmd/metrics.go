package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/mikaelmello/reachping/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// withMetrics attaches fresh metrics to settings when enabled. The returned function prints
// them to stderr and must be called once the sessions ended.
func withMetrics(settings *core.Settings, enabled bool) (func(), error) {
	if !enabled {
		return func() {}, nil
	}

	reg := prometheus.NewRegistry()
	m, err := core.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	settings.Metrics = m

	return func() {
		if err := writeMetrics(os.Stderr, reg); err != nil {
			fmt.Fprintf(os.Stderr, "could not write metrics: %s\n", err)
		}
	}, nil
}

// writeMetrics writes every metric of g in the text exposition format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
