package commands

import (
	"sort"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/features"
)

// PropertiesCmd profiles property coverage
var PropertiesCmd = &cobra.Command{
	Use:   "properties [name...]",
	Short: "Profile property coverage and correlation",
	Long: `Show how each property is populated across the catalog: numeric, text and
missing counts, the dominant dimension and how many distinct units appear.
Without names every property of the catalog is profiled. With --correlate
exactly two names are related by Pearson and Spearman coefficients.`,
	Example: `  scaleviewer properties
  scaleviewer properties mass radius --log
  scaleviewer properties mass:log radius:log --correlate`,
	RunE: runProperties,
}

var (
	propertiesLog       bool
	propertiesCorrelate bool
	propertiesMin       float64
	propertiesJSON      bool
)

func init() {
	PropertiesCmd.Flags().BoolVar(&propertiesLog, "log", false, "Profile the log10-scaled column")
	PropertiesCmd.Flags().BoolVar(&propertiesCorrelate, "correlate", false, "Correlate two properties (name or name:log)")
	PropertiesCmd.Flags().Float64Var(&propertiesMin, "min-coverage", 0, "Hide properties below this coverage")
	PropertiesCmd.Flags().BoolVar(&propertiesJSON, "json", false, "Print results as JSON")
}

func runProperties(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if propertiesCorrelate {
		if len(args) != 2 {
			return errors.WithHint(errors.New("--correlate needs exactly two properties"), "e.g. scaleviewer properties mass:log radius:log --correlate")
		}
		schema, err := features.ParseSchema(args, features.ScalingZScore)
		if err != nil {
			return err
		}
		c, err := rt.analyzer.Correlate(schema.Properties[0], schema.Properties[1])
		if err != nil {
			return err
		}
		if propertiesJSON {
			return printJSON(c)
		}
		pterm.DefaultSection.Printf("%s vs %s (catalog v%d)", c.X, c.Y, c.CatalogVersion)
		pterm.Info.Printf("Pairs %d, Pearson %s, Spearman %s, strength %s\n",
			c.Pairs, formatScore(c.Pearson), formatScore(c.Spearman), c.Strength)
		return nil
	}

	names := args
	if len(names) == 0 {
		names = rt.analyzer.Catalog().PropertyNames()
	}
	profiles := make([]features.PropertyProfile, 0, len(names))
	for _, name := range names {
		prof, err := rt.analyzer.Profile(features.Property{Name: name, LogScale: propertiesLog})
		if err != nil {
			return err
		}
		if prof.Coverage < propertiesMin {
			continue
		}
		profiles = append(profiles, prof)
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].Coverage > profiles[j].Coverage
	})
	if propertiesJSON {
		return printJSON(profiles)
	}

	data := pterm.TableData{{"Property", "Coverage", "Numeric", "Text", "Missing", "Incompatible", "Dimension", "Units"}}
	for _, p := range profiles {
		data = append(data, []string{
			p.Property,
			strconv.FormatFloat(p.Coverage*100, 'f', 1, 64) + "%",
			strconv.Itoa(p.Numeric), strconv.Itoa(p.Text), strconv.Itoa(p.Missing), strconv.Itoa(p.Incompatible),
			string(p.Dimension), strconv.Itoa(len(p.Units)),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
