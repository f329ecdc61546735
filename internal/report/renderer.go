// Package report renders proposals, run results, inventories, and cost
// reports to a writer in table, JSON, or CSV form. Rendering never
// mutates what it is given; the same value can be rendered twice.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatJSON, FormatCSV:
		return Format(s), nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected table, json, or csv)", s)
	}
}

type Renderer struct {
	out    io.Writer
	format Format
	nowFn  func() time.Time
}

func NewRenderer(out io.Writer, format Format) *Renderer {
	return &Renderer{
		out:    out,
		format: format,
		nowFn:  time.Now,
	}
}

// ScalingProposals renders the actions a scale run wants to take.
func (r *Renderer) ScalingProposals(actions []models.ScalingAction) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(map[string]any{"actions": actions})
	case FormatCSV:
		rows := [][]string{{"group", "direction", "current", "target", "cpu_pct", "mem_pct", "reason"}}
		for _, a := range actions {
			rows = append(rows, []string{
				a.GroupID, string(a.Direction),
				strconv.Itoa(a.CurrentInstances), strconv.Itoa(a.TargetInstances),
				fmt.Sprintf("%.1f", a.Metrics.CPUPercent), fmt.Sprintf("%.1f", a.Metrics.MemoryPercent),
				a.Reason,
			})
		}
		return r.writeCSV(rows)
	default:
		if len(actions) == 0 {
			fmt.Fprintln(r.out, "No scaling actions proposed.")
			return nil
		}
		tw := r.newTab()
		fmt.Fprintln(tw, "GROUP\tDIRECTION\tINSTANCES\tCPU%\tMEM%\tREASON")
		for _, a := range actions {
			fmt.Fprintf(tw, "%s\t%s\t%d -> %d\t%.1f\t%.1f\t%s\n",
				a.GroupID, a.Direction, a.CurrentInstances, a.TargetInstances,
				a.Metrics.CPUPercent, a.Metrics.MemoryPercent, a.Reason)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "\n%d scaling action(s) proposed\n", len(actions))
		return nil
	}
}

// CleanupProposals renders cleanup candidates with the savings total.
func (r *Renderer) CleanupProposals(actions []models.CleanupAction) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(map[string]any{
			"actions":               actions,
			"estimated_savings_usd": models.TotalSavings(actions),
		})
	case FormatCSV:
		rows := [][]string{{"resource_id", "name", "type", "state", "savings_monthly_usd", "reason"}}
		for _, a := range actions {
			rows = append(rows, []string{
				a.Resource.ID, a.Resource.Name, string(a.Resource.Type), string(a.Resource.State),
				fmt.Sprintf("%.2f", a.EstimatedSavings), a.Reason,
			})
		}
		return r.writeCSV(rows)
	default:
		if len(actions) == 0 {
			fmt.Fprintln(r.out, "No cleanup candidates found.")
			return nil
		}
		tw := r.newTab()
		fmt.Fprintln(tw, "RESOURCE\tNAME\tTYPE\tSTATE\tSAVINGS/MO\tREASON")
		for _, a := range actions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t$%.2f\t%s\n",
				a.Resource.ID, a.Resource.Name, a.Resource.Type, a.Resource.State,
				a.EstimatedSavings, a.Reason)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "\n%d candidate(s), estimated monthly savings $%.2f\n",
			len(actions), models.TotalSavings(actions))
		return nil
	}
}

// Inventory renders a resource listing with a summary block.
func (r *Renderer) Inventory(resources []models.Resource) error {
	summary := models.Summarize(resources)

	switch r.format {
	case FormatJSON:
		return r.writeJSON(map[string]any{"resources": resources, "summary": summary})
	case FormatCSV:
		rows := [][]string{{"id", "name", "type", "state", "region", "utilization_pct", "age_days", "monthly_cost_usd"}}
		for i := range resources {
			res := &resources[i]
			rows = append(rows, []string{
				res.ID, res.Name, string(res.Type), string(res.State), res.Region,
				fmt.Sprintf("%.1f", res.Utilization), r.ageColumn(res), fmt.Sprintf("%.2f", res.MonthlyCost),
			})
		}
		return r.writeCSV(rows)
	default:
		if len(resources) == 0 {
			fmt.Fprintln(r.out, "No resources found.")
			return nil
		}
		tw := r.newTab()
		fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSTATE\tREGION\tUTIL%\tAGE\tCOST/MO")
		for i := range resources {
			res := &resources[i]
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.1f\t%s\t$%.2f\n",
				res.ID, res.Name, res.Type, res.State, res.Region,
				res.Utilization, r.ageColumn(res), res.MonthlyCost)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "\nTotal: %d (%s) · Running: %d · Stopped: %d · Monthly cost: $%.2f\n",
			summary.Total, typeBreakdown(summary), summary.Running, summary.Stopped, summary.MonthlyCost)
		return nil
	}
}

// Run renders the terminal summary of a flow run.
func (r *Renderer) Run(report *models.RunReport) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(report)
	case FormatCSV:
		rows := [][]string{{"action_id", "kind", "target", "outcome", "detail", "error"}}
		for _, rec := range report.Records {
			rows = append(rows, []string{rec.ActionID, string(rec.Kind), rec.TargetID, string(rec.Outcome), rec.Detail, rec.Error})
		}
		return r.writeCSV(rows)
	default:
		mode := ""
		if report.DryRun {
			mode = " (dry run)"
		}
		fmt.Fprintf(r.out, "Run %s [%s, %s] %s%s in %s\n",
			report.RunID, report.Kind, report.Provider, report.Status, mode, report.Elapsed().Round(time.Millisecond))

		if len(report.Records) > 0 {
			tw := r.newTab()
			fmt.Fprintln(tw, "TARGET\tOUTCOME\tDETAIL\tERROR")
			for _, rec := range report.Records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.TargetID, rec.Outcome, rec.Detail, rec.Error)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}

		fmt.Fprintf(r.out, "\nProposed: %d · Applied: %d · Failed: %d",
			report.Proposed, report.Applied, report.Failed)
		if report.Suppressed > 0 {
			fmt.Fprintf(r.out, " · Suppressed: %d", report.Suppressed)
		}
		if report.TotalSavings > 0 {
			fmt.Fprintf(r.out, " · Savings: $%.2f/mo", report.TotalSavings)
		}
		fmt.Fprintln(r.out)

		for _, w := range report.Warnings {
			fmt.Fprintf(r.out, "warning: %s\n", w)
		}
		return nil
	}
}

// Cost renders a cost report with budget alerts last.
func (r *Renderer) Cost(report *models.CostReport) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(report)
	case FormatCSV:
		rows := [][]string{{"service", "amount", "currency"}}
		for _, s := range report.Services {
			rows = append(rows, []string{s.Service, s.Amount.StringFixed(2), report.Currency})
		}
		rows = append(rows, []string{"TOTAL", report.TotalCost.StringFixed(2), report.Currency})
		return r.writeCSV(rows)
	default:
		fmt.Fprintf(r.out, "Cost report for %s (%s to %s)\n\n",
			report.Provider,
			report.StartDate.Format("2006-01-02"),
			report.EndDate.Format("2006-01-02"))

		tw := r.newTab()
		fmt.Fprintln(tw, "SERVICE\tAMOUNT")
		for _, s := range report.Services {
			fmt.Fprintf(tw, "%s\t%s %s\n", s.Service, s.Amount.StringFixed(2), report.Currency)
		}
		fmt.Fprintf(tw, "TOTAL\t%s %s\n", report.TotalCost.StringFixed(2), report.Currency)
		if err := tw.Flush(); err != nil {
			return err
		}

		for _, alert := range report.Alerts {
			fmt.Fprintf(r.out, "\n[%s] %s\n", alert.Severity, alert.Message)
		}
		return nil
	}
}

func (r *Renderer) newTab() *tabwriter.Writer {
	return tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
}

func (r *Renderer) writeJSON(payload any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func (r *Renderer) writeCSV(rows [][]string) error {
	w := csv.NewWriter(r.out)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (r *Renderer) ageColumn(res *models.Resource) string {
	days, known := res.AgeDays(r.nowFn())
	if !known {
		return "-"
	}
	return fmt.Sprintf("%dd", days)
}

func typeBreakdown(s models.ResourceSummary) string {
	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, string(t))
	}
	sort.Strings(types)

	out := ""
	for i, t := range types {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%d %s", s.ByType[models.ResourceType(t)], t)
	}
	return out
}
