package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DrNicoArt/scaleviewer/internal/models"
	"github.com/DrNicoArt/scaleviewer/internal/units"
)

// NormalizeCmd shows how raw property values are parsed
var NormalizeCmd = &cobra.Command{
	Use:   "normalize <value>...",
	Short: "Show how raw values are parsed into quantities",
	Long: `Parse each argument the way catalog property values are parsed and show
the number, unit, range and base-unit conversion. No catalog is loaded.`,
	Example: `  scaleviewer normalize "5.97 × 10^24 kg" "~4.6 Gyr" "1,000-2,000 K"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runNormalize,
}

var normalizeJSON bool

func init() {
	NormalizeCmd.Flags().BoolVar(&normalizeJSON, "json", false, "Print results as JSON")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	n := units.NewNormalizer()
	results := make([]models.NormalizeResponse, 0, len(args))
	for _, raw := range args {
		q, err := n.ParseString(raw)
		results = append(results, models.NewNormalizeResponse(q, err))
	}
	if normalizeJSON {
		return printJSON(results)
	}

	data := pterm.TableData{{"Input", "Kind", "Parsed", "Base value", "Dimension", "Problem"}}
	for i, r := range results {
		base := "-"
		if r.Base != nil {
			base = strconv.FormatFloat(*r.Base, 'g', 6, 64) + " " + r.BaseUnit
		}
		data = append(data, []string{args[i], r.Quantity.Kind.String(), r.Display, base, r.Dimension, r.Problem})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
