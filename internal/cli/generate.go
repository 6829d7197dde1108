package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/outfitforge/bundleengine/internal/config"
	"github.com/outfitforge/bundleengine/internal/model"
)

var (
	generateOccasion   string
	generateDressiness int
	generateTemp       string
	generateAllowCat   bool
	generateBudgetMS   int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Assemble a bundle for an occasion context",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateOccasion, "occasion", "", "occasion (required)")
	generateCmd.Flags().IntVar(&generateDressiness, "dressiness", 0, "target dressiness 1..5 (0 = use profile baseline)")
	generateCmd.Flags().StringVar(&generateTemp, "temperature-band", "mild", "temperature band (cold|cool|mild|warm|hot)")
	generateCmd.Flags().BoolVar(&generateAllowCat, "allow-catalog", false, "allow catalog items to fill gaps")
	generateCmd.Flags().IntVar(&generateBudgetMS, "budget-ms", 0, "generate latency budget in milliseconds (0 = use the loaded config's GenerateBudget)")
	_ = generateCmd.MarkFlagRequired("occasion")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	eng, fs, err := buildEngine()
	if err != nil {
		return err
	}

	budget := time.Duration(generateBudgetMS) * time.Millisecond
	if generateBudgetMS <= 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		budget = cfg.GenerateBudget
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), budget)
	defer cancel()

	reqCtx := model.Context{
		Occasion:         generateOccasion,
		TargetDressiness: generateDressiness,
		TemperatureBand:  model.Season(generateTemp),
	}

	result, err := eng.Generate(ctx, fs.Profile.UserID, reqCtx, generateAllowCat)
	if err != nil {
		printError(err)
		return err
	}

	printBundle(result.Bundle, indexItems(fs))
	return nil
}

// indexItems builds an item_id -> Item lookup over a fixture's wardrobe and
// catalog, for rendering a bundle's slot assignments.
func indexItems(fs fixtureSet) map[string]model.Item {
	out := make(map[string]model.Item, len(fs.Wardrobe)+len(fs.Catalog))
	for _, it := range fs.Wardrobe {
		out[it.ItemID] = it
	}
	for _, it := range fs.Catalog {
		out[it.ItemID] = it
	}
	return out
}

func printError(err error) {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: %v\n", err)
}

func printBundle(b model.Bundle, items map[string]model.Item) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	bold.Printf("template: %s  ruleset: %s\n", b.TemplateID, b.RuleSetVersion)
	if b.Partial {
		color.New(color.FgYellow).Println("(partial bundle: deadline exceeded before completion)")
	}

	t := newTable([]string{"SLOT", "ITEM", "OWNER", "ROLE"})
	slots := make([]model.Slot, 0, len(b.Items))
	for slot := range b.Items {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	for _, slot := range slots {
		id := b.Items[slot]
		it := items[id]
		t.addRow([]string{string(slot), id, string(it.Owner), string(it.Role)})
	}
	fmt.Print(t.render())

	green.Printf("score: %.3f\n", b.Score)
	for _, c := range b.Components {
		fmt.Printf("  %-22s w=%.2f s=%.2f conf=%.2f  %s\n", c.Name, c.Weight, c.Score, c.Confidence, c.Explanation)
	}
}
