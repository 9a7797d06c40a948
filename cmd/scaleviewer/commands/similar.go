package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DrNicoArt/scaleviewer/internal/features"
	"github.com/DrNicoArt/scaleviewer/internal/similarity"
)

// SimilarCmd ranks entities against a query entity
var SimilarCmd = &cobra.Command{
	Use:   "similar <entity-id>",
	Short: "Rank entities similar to one entity",
	Long: `Build feature vectors over a schema of properties and rank every other
entity by cosine similarity or euclidean distance. Only dimensions both
entities define contribute to a score.`,
	Example: `  scaleviewer similar sun
  scaleviewer similar sun --schema mass:log,radius:log --metric euclidean --top 3`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

// CompareCmd lines up two entities property by property
var CompareCmd = &cobra.Command{
	Use:   "compare <left-id> <right-id> [property...]",
	Short: "Compare two entities property by property",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCompare,
}

var (
	similarSchema    []string
	similarScaling   string
	similarMetric    string
	similarTop       int
	similarNoAliases bool
	similarJSON      bool
)

func init() {
	SimilarCmd.Flags().StringSliceVar(&similarSchema, "schema", nil, "Properties to compare, name or name:log (default analysis.schema)")
	SimilarCmd.Flags().StringVar(&similarScaling, "scaling", "", "Column scaling: zscore or minmax (default analysis.scaling)")
	SimilarCmd.Flags().StringVarP(&similarMetric, "metric", "m", "", "cosine or euclidean (default analysis.metric)")
	SimilarCmd.Flags().IntVarP(&similarTop, "top", "n", -1, "Number of matches (default analysis.top_n)")
	SimilarCmd.Flags().BoolVar(&similarNoAliases, "no-aliases", false, "Do not resolve alias property names")
	SimilarCmd.Flags().BoolVar(&similarJSON, "json", false, "Print the result as JSON")

	CompareCmd.Flags().BoolVar(&similarJSON, "json", false, "Print the result as JSON")
}

// commandSchema builds the schema from flags with configuration fallbacks.
func commandSchema(items []string, scalingName string, noAliases bool) (features.Schema, error) {
	if len(items) == 0 {
		items = cfg.Analysis.Schema
	}
	if scalingName == "" {
		scalingName = cfg.Analysis.Scaling
	}
	scaling, err := features.ParseScaling(scalingName)
	if err != nil {
		return features.Schema{}, err
	}
	schema, err := features.ParseSchema(items, scaling)
	if err != nil {
		return features.Schema{}, err
	}
	if cfg.Analysis.Aliases && !noAliases {
		schema = schema.WithDefaultAliases()
	}
	return schema, nil
}

func runSimilar(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer rt.Close()

	schema, err := commandSchema(similarSchema, similarScaling, similarNoAliases)
	if err != nil {
		return err
	}
	req := similarity.Request{QueryID: args[0], Schema: schema, TopN: cfg.Analysis.TopN, Metric: cfg.Analysis.Metric}
	if similarTop >= 0 {
		req.TopN = similarTop
	}
	if similarMetric != "" {
		req.Metric = similarMetric
	}

	res, err := rt.analyzer.FindSimilar(cmd.Context(), req)
	if err != nil {
		return err
	}
	if similarJSON {
		return printJSON(res)
	}

	pterm.DefaultSection.Printf("Similar to %s (%s, catalog v%d)", res.QueryID, res.Metric, res.CatalogVersion)
	if res.Notice != nil {
		pterm.Warning.Println(res.Notice.Error())
		return nil
	}
	if len(res.Matches) == 0 {
		pterm.Info.Println("No entity shares a defined property with the query")
		return nil
	}
	data := pterm.TableData{{"#", "ID", "Name", "Scale", "Score", "Overlap"}}
	for i, m := range res.Matches {
		data = append(data, []string{
			strconv.Itoa(i + 1), m.ID, m.Name, string(m.Scale),
			strconv.FormatFloat(m.Score, 'f', 4, 64), fmt.Sprintf("%d/%d", m.Overlap, len(res.Schema)),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runCompare(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer rt.Close()

	c, err := rt.analyzer.Compare(args[0], args[1], args[2:])
	if err != nil {
		return err
	}
	if similarJSON {
		return printJSON(c)
	}
	data := pterm.TableData{{"Property", c.LeftID, c.RightID, "Similarity", "Note"}}
	for _, p := range c.Properties {
		data = append(data, []string{p.Property, p.Left.String(), p.Right.String(), formatScore(p.Similarity), p.Reason})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Info.Printf("Overall similarity %s over %d properties\n", formatScore(c.Similarity), c.Compared)
	return nil
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
