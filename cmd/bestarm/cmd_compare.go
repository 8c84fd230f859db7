package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/bestarm/pkg/bandit"
	"github.com/AleutianAI/bestarm/pkg/study"
	"github.com/AleutianAI/bestarm/pkg/ux"
)

// runCompare executes the "bestarm compare" command.
func runCompare(cmd *cobra.Command, args []string) {
	scn, err := loadScenario(cmd)
	if err != nil {
		fail("load scenario", err)
	}

	// The comparison always runs both modes on identical seeds; a mode
	// override would be silently ignored, so reject it.
	if cmd.Flags().Changed("mode") {
		fail("configure comparison", errors.New("--mode does not apply to compare"))
	}

	cfg := studyConfig(scn, bandit.ModeAdaptive, slog.Default())

	ux.Title("Mode comparison: " + scenarioName(cmd, scn))
	ux.Field("Arms", formatRates(scn.Arms.TrueRates))
	ux.Field("Replications", strconv.Itoa(cfg.Replications)+" per mode")

	ctx, cancel := signalContext()
	defer cancel()

	var comparison *study.Comparison
	err = ux.WithSpinner("running paired adaptive and uniform studies", func() error {
		c, runErr := study.CompareModes(ctx, cfg)
		if runErr != nil {
			return runErr
		}
		comparison = c
		return nil
	})
	if err != nil {
		slog.Error("comparison failed", "error", err)
		os.Exit(exitError)
	}

	renderComparison(comparison)
}

// renderComparison prints the per-mode table, the test statistics, and
// the recommendation.
func renderComparison(c *study.Comparison) {
	table := ux.NewTable("Mode", "Mean pulls", "P90", "Correct", "Capped")
	table.AddRow(comparisonRow(c.Adaptive)...)
	table.AddRow(comparisonRow(c.Uniform)...)
	fmt.Print(table.Render())

	if t := c.PullsTest; t != nil {
		verdict := "not significant"
		if t.Significant {
			verdict = "significant"
		}
		ux.Field("Welch t-test", fmt.Sprintf("t = %.2f, p = %.4f (%s at %.2f)",
			t.TStatistic, t.PValue, verdict, t.SignificanceLevel))
	}
	if d := c.PullsDiff; d != nil {
		ux.Field("Pull difference", fmt.Sprintf("%.1f (%.0f%% CI %.1f to %.1f)",
			d.Center, d.Level*100, d.Lower, d.Upper))
	}
	ux.Field("Effect size", fmt.Sprintf("d = %.2f (%s)", c.EffectD, c.Effect))
	ux.Field("Power", formatPercent(c.Power))

	switch c.Recommendation {
	case study.RecommendAdaptive:
		saving := 1 - c.Adaptive.Pulls.Mean/c.Uniform.Pulls.Mean
		ux.Success(fmt.Sprintf("adaptive allocation wins: %s fewer pulls on average",
			formatPercent(saving)))
	case study.RecommendUniform:
		saving := 1 - c.Uniform.Pulls.Mean/c.Adaptive.Pulls.Mean
		ux.Success(fmt.Sprintf("uniform allocation wins: %s fewer pulls on average",
			formatPercent(saving)))
	default:
		if c.SuggestedReplications > 0 {
			ux.Warning(fmt.Sprintf("no significant difference; try %d replications per mode",
				c.SuggestedReplications))
		} else {
			ux.Warning("no significant difference between modes")
		}
	}
}

// comparisonRow formats one mode's study result as a table row.
func comparisonRow(r *study.Result) []string {
	return []string{
		r.Mode.String(),
		fmt.Sprintf("%.1f", r.Pulls.Mean),
		fmt.Sprintf("%.0f", r.Pulls.P90),
		formatPercent(r.CorrectRate),
		strconv.Itoa(r.CappedCount),
	}
}
