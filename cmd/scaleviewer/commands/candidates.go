package commands

import (
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/export"
	"github.com/DrNicoArt/scaleviewer/internal/rules"
)

// CandidatesCmd evaluates time-crystal candidacy
var CandidatesCmd = &cobra.Command{
	Use:   "candidates [entity-id]",
	Short: "Evaluate time-crystal candidacy",
	Long: `Score entities against the configured rule set. With an entity id the
full report for that entity is printed, rule by rule; without one the whole
catalog is swept and ranked by score.`,
	Example: `  scaleviewer candidates
  scaleviewer candidates --only --threshold 0.5
  scaleviewer candidates quantum_spin_chain
  scaleviewer candidates --csv candidates.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCandidates,
}

var (
	candidatesThreshold float64
	candidatesOnly      bool
	candidatesCSV       string
	candidatesJSON      bool
)

func init() {
	CandidatesCmd.Flags().Float64VarP(&candidatesThreshold, "threshold", "t", -1, "Candidacy cutoff in [0, 1] (default analysis.threshold)")
	CandidatesCmd.Flags().BoolVar(&candidatesOnly, "only", false, "Only list entities at or above the threshold")
	CandidatesCmd.Flags().StringVar(&candidatesCSV, "csv", "", "Write the sweep as CSV to this file (- for stdout)")
	CandidatesCmd.Flags().BoolVar(&candidatesJSON, "json", false, "Print reports as JSON")
}

func runCandidates(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer rt.Close()

	threshold := cfg.Analysis.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = candidatesThreshold
	}

	if len(args) == 1 {
		rep, err := rt.analyzer.Candidacy(args[0], threshold)
		if err != nil {
			return err
		}
		if candidatesJSON {
			return printJSON(rep)
		}
		printReport(rep)
		return nil
	}

	if candidatesCSV != "" {
		return exportCandidates(cmd, rt, threshold)
	}

	reports, version, err := rt.analyzer.Candidates(cmd.Context(), threshold, candidatesOnly)
	if err != nil {
		return err
	}
	if candidatesJSON {
		return printJSON(reports)
	}

	pterm.DefaultSection.Printf("Candidacy sweep: rule set %s, threshold %g, catalog v%d",
		rt.analyzer.RuleSet().Name, threshold, version)
	if len(reports) == 0 {
		pterm.Info.Println("No entity reaches the threshold")
		return nil
	}
	data := pterm.TableData{{"ID", "Name", "Scale", "Score", "Band", "Matched"}}
	for _, rep := range reports {
		data = append(data, []string{
			rep.EntityID, rep.Name, string(rep.Scale),
			strconv.FormatFloat(rep.Score, 'f', 3, 64), string(rep.Band),
			strings.Join(rep.Matched, ", "),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Info.Printf("%d of %d entities are candidates\n", len(rules.Candidates(reports)), len(reports))
	return nil
}

func printReport(rep rules.Report) {
	pterm.DefaultSection.Printf("%s (%s): %s", rep.Name, rep.EntityID, rep.Verdict())
	pterm.Info.Printf("Score %.3f against threshold %g, band %s\n", rep.Score, rep.Threshold, rep.Band)

	data := pterm.TableData{{"Rule", "Weight", "Result", "Observed", "Rationale"}}
	for _, o := range rep.Outcomes {
		result := "no"
		if o.Matched {
			result = "yes"
		}
		data = append(data, []string{
			o.RuleID, strconv.FormatFloat(o.Weight, 'g', -1, 64), result, o.Observed, o.Rationale,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Println(err)
	}
	pterm.Println(rep.Summary)
}

func exportCandidates(cmd *cobra.Command, rt *runtime, threshold float64) error {
	out, err := rt.analyzer.ExportCandidates(cmd.Context(), threshold, candidatesOnly)
	if err != nil {
		return err
	}

	if candidatesCSV == "-" {
		return export.WriteCSV(os.Stdout, out.Records)
	}
	f, err := os.Create(candidatesCSV)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", candidatesCSV)
	}
	if err := export.WriteCSV(f, out.Records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to write %s", candidatesCSV)
	}

	pterm.Success.Printf("Wrote %d records to %s\n", len(out.Records), candidatesCSV)
	if out.Run != nil {
		pterm.Info.Printf("Archived as run %s\n", out.Run.ID)
	}
	return nil
}
