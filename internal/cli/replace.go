package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/outfitforge/bundleengine/internal/model"
)

var (
	replaceBundlePath string
	replaceSlot       string
	replaceOccasion   string
	replaceDressiness int
	replaceTemp       string
	replaceAllowCat   bool
	replaceBudgetMS   int
)

var replaceCmd = &cobra.Command{
	Use:   "replace",
	Short: "Rank replacement alternatives for one slot of an existing bundle",
	RunE:  runReplace,
}

func init() {
	replaceCmd.Flags().StringVar(&replaceBundlePath, "bundle", "", "path to a bundle JSON file (required)")
	replaceCmd.Flags().StringVar(&replaceSlot, "slot", "", "slot to replace (required)")
	replaceCmd.Flags().StringVar(&replaceOccasion, "occasion", "", "occasion the bundle was generated for (required)")
	replaceCmd.Flags().IntVar(&replaceDressiness, "dressiness", 0, "target dressiness 1..5 (0 = use profile baseline)")
	replaceCmd.Flags().StringVar(&replaceTemp, "temperature-band", "mild", "temperature band (cold|cool|mild|warm|hot)")
	replaceCmd.Flags().BoolVar(&replaceAllowCat, "allow-catalog", false, "allow catalog items among alternatives")
	replaceCmd.Flags().IntVar(&replaceBudgetMS, "budget-ms", 600, "replace latency budget in milliseconds")
	_ = replaceCmd.MarkFlagRequired("bundle")
	_ = replaceCmd.MarkFlagRequired("slot")
	_ = replaceCmd.MarkFlagRequired("occasion")
}

func runReplace(cmd *cobra.Command, _ []string) error {
	eng, fs, err := buildEngine()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(replaceBundlePath) // #nosec G304 - operator-supplied bundle path
	if err != nil {
		return fmt.Errorf("cli: read bundle: %w", err)
	}
	var bundle model.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("cli: parse bundle: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(replaceBudgetMS)*time.Millisecond)
	defer cancel()

	reqCtx := model.Context{
		Occasion:         replaceOccasion,
		TargetDressiness: replaceDressiness,
		TemperatureBand:  model.Season(replaceTemp),
	}

	result, err := eng.Replace(ctx, fs.Profile.UserID, bundle, indexItems(fs), model.Slot(replaceSlot), reqCtx, replaceAllowCat)
	if err != nil {
		printError(err)
		return err
	}

	t := newTable([]string{"ITEM", "SCORE", "DELTA", "CASCADE", "REASON"})
	for _, a := range result.Alternatives {
		cascade := "no"
		if a.RequiresCascade {
			cascade = fmt.Sprintf("%d slot(s)", len(a.CascadePlan))
		}
		t.addRow([]string{a.ItemID, fmt.Sprintf("%.3f", a.NewScore), fmt.Sprintf("%+.3f", a.DeltaVsCurrent), cascade, a.CoherenceReason})
	}
	fmt.Print(t.render())
	color.New(color.FgGreen).Printf("%d alternative(s) ranked\n", len(result.Alternatives))
	return nil
}
