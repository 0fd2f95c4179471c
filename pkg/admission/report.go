package admission

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/nightgate/nightgate/pkg/model"
	"github.com/nightgate/nightgate/pkg/quota"
)

type ReportOptions struct {
	Every      int `mapstructure:"every"`
	EarlyEvery int `mapstructure:"early_every"`
	EarlyUntil int `mapstructure:"early_until"`
}

func DefaultReportOptions() ReportOptions {
	return ReportOptions{Every: 100, EarlyEvery: 10, EarlyUntil: 50}
}

type progressReporter struct {
	logger    *zap.Logger
	opts      ReportOptions
	tolerance float64
	last      int
}

func newProgressReporter(logger *zap.Logger, opts ReportOptions, tolerance float64) *progressReporter {
	return &progressReporter{logger: logger, opts: opts, tolerance: tolerance}
}

func (r *progressReporter) due(processed int) bool {
	if r.opts.Every > 0 && processed-r.last >= r.opts.Every {
		return true
	}
	return r.opts.EarlyEvery > 0 && processed < r.opts.EarlyUntil && processed%r.opts.EarlyEvery == 0
}

func (r *progressReporter) maybeReport(state *quota.State, reasons map[model.Reason]int) {
	processed := state.Processed()
	if !r.due(processed) {
		return
	}
	r.last = processed

	if ce := r.logger.Check(zap.InfoLevel, "admission progress"); ce != nil {
		ce.Write(progressFields(state, reasons, r.tolerance)...)
	}
}

func progressFields(state *quota.State, reasons map[model.Reason]int, tolerance float64) []zap.Field {
	stats := state.Statistics()
	processed := state.Processed()

	efficiency := 0.0
	if processed > 0 {
		efficiency = float64(state.Admitted()) / float64(processed)
	}

	slotsLeft := max(0, state.SlotsLeft())
	atRisk := make(map[string]float64)
	for i, delta := range quota.Project(state, slotsLeft) {
		if delta < -tolerance {
			atRisk[stats.Attribute(i)] = math.Round(delta*10) / 10
		}
	}

	fillRatios := make(map[string]string, stats.Len())
	for i := 0; i < stats.Len(); i++ {
		observed, target := quota.Pace(state, i)
		fillRatios[stats.Attribute(i)] = fmt.Sprintf("%.2f%%/%.2f%%", observed*100, target*100)
	}

	reasonCounts := make(map[string]int, len(reasons))
	for reason, count := range reasons {
		reasonCounts[string(reason)] = count
	}

	fields := []zap.Field{
		zap.Int("processed", processed),
		zap.Int("admitted", state.Admitted()),
		zap.Int("capacity", stats.Capacity()),
		zap.Float64("efficiency", math.Round(efficiency*100)/100),
		zap.Int("need_remaining", state.TotalNeed()),
		zap.Strings("top_deficits", topDeficits(state, 3)),
		zap.Any("fill_ratio", fillRatios),
		zap.Any("reasons", reasonCounts),
	}
	if len(atRisk) > 0 {
		fields = append(fields, zap.Any("projected_underfill", atRisk))
	}
	return fields
}

// topDeficits lists the n attributes with the largest unmet need, formatted
// as attribute=need, largest first.
func topDeficits(state *quota.State, n int) []string {
	stats := state.Statistics()
	order := make([]int, stats.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return state.NeedRemaining(order[a]) > state.NeedRemaining(order[b])
	})
	if len(order) > n {
		order = order[:n]
	}
	out := make([]string, 0, len(order))
	for _, i := range order {
		out = append(out, fmt.Sprintf("%s=%d", stats.Attribute(i), state.NeedRemaining(i)))
	}
	return out
}
