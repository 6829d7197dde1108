package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/outfitforge/bundleengine/internal/model"
)

var explainBundlePath string

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Print per-slot and per-component explanations for a bundle",
	RunE:  runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&explainBundlePath, "bundle", "", "path to a bundle JSON file (required)")
	_ = explainCmd.MarkFlagRequired("bundle")
}

func runExplain(cmd *cobra.Command, _ []string) error {
	eng, _, err := buildEngine()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(explainBundlePath) // #nosec G304 - operator-supplied bundle path
	if err != nil {
		return fmt.Errorf("cli: read bundle: %w", err)
	}
	var bundle model.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("cli: parse bundle: %w", err)
	}

	result := eng.Explain(bundle)

	bold := color.New(color.Bold)
	bold.Println("slot assignments:")
	sort.Slice(result.Slots, func(i, j int) bool { return result.Slots[i].Slot < result.Slots[j].Slot })
	for _, s := range result.Slots {
		fmt.Printf("  %-10s %s\n", s.Slot, s.ItemID)
	}

	bold.Printf("\nscore: %.3f\n", result.Score)
	for _, c := range result.Components {
		line := fmt.Sprintf("  %-22s w=%.2f s=%.2f conf=%.2f  %s", c.Name, c.Weight, c.Score, c.Confidence, c.Explanation)
		if c.Score >= 0.8 {
			color.New(color.FgGreen).Println(line)
		} else if c.Score >= 0.5 {
			color.New(color.FgYellow).Println(line)
		} else {
			color.New(color.FgRed).Println(line)
		}
	}
	return nil
}
