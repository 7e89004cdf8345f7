package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/gradeprobe/internal/itemgen"
	"github.com/abhisek/gradeprobe/internal/llm"
	"github.com/abhisek/gradeprobe/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect item generation LLM calls",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent item generation calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := store.QueryOpts{}
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Purpose, _ = cmd.Flags().GetString("purpose")
		opts.Session, _ = cmd.Flags().GetString("session")
		if all, _ := cmd.Flags().GetBool("all"); all {
			opts.Purpose = ""
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM events found.")
			return nil
		}
		writeEventTable(out, events)
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the prompt and raw output of one call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}
		writeEventDetail(cmd.OutOrStdout(), e)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage and estimated generation cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		repo := s.EventRepo()

		if session == "" {
			byPurpose, err := repo.LLMUsageByPurpose(ctx)
			if err != nil {
				return fmt.Errorf("query usage: %w", err)
			}
			if len(byPurpose) == 0 {
				fmt.Fprintln(out, "No LLM usage recorded yet.")
				return nil
			}
			writePurposeTable(out, byPurpose)
			fmt.Fprintln(out)
		}

		byModel, err := repo.LLMUsageByModel(ctx, session)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		if len(byModel) == 0 {
			fmt.Fprintf(out, "No LLM usage recorded for session %s.\n", session)
			return nil
		}
		if session != "" {
			fmt.Fprintf(out, "Session %s\n", session)
		}
		writeCostTable(out, estimateCost(byModel))
		return nil
	},
}

// costSummary prices per-model usage. Models without a known price are
// listed in Unpriced and excluded from Total.
type costSummary struct {
	Rows     []costRow
	Calls    int
	Total    float64
	Unpriced []string
}

type costRow struct {
	store.ModelUsage
	Cost   float64
	Priced bool
}

func estimateCost(usage []store.ModelUsage) costSummary {
	var sum costSummary
	for _, mu := range usage {
		row := costRow{ModelUsage: mu}
		if price := llm.LookupCost(mu.Model); price != nil {
			row.Cost = price.Cost(mu.InputTokens, mu.OutputTokens)
			row.Priced = true
			sum.Total += row.Cost
		} else {
			sum.Unpriced = append(sum.Unpriced, mu.Model)
		}
		sum.Calls += mu.Calls
		sum.Rows = append(sum.Rows, row)
	}
	return sum
}

// String is the one-line form shown under a session result.
func (c costSummary) String() string {
	s := fmt.Sprintf("%d calls, %s", c.Calls, formatCost(c.Total))
	if len(c.Unpriced) > 0 {
		s += " (partial)"
	}
	return s
}

const ruleWidth = 72

func rule(out io.Writer) {
	fmt.Fprintln(out, strings.Repeat("─", ruleWidth))
}

func writeEventTable(out io.Writer, events []store.LLMEvent) {
	fmt.Fprintf(out, "%-5s  %-19s  %-8s  %-24s  %11s  %6s  %s\n",
		"ID", "Time", "Session", "Model", "Tokens", "Ms", "OK")
	rule(out)
	for _, e := range events {
		session := truncate(e.SessionID, 8)
		if session == "" {
			session = "-"
		}
		fmt.Fprintf(out, "%-5d  %-19s  %-8s  %-24s  %5d/%-5d  %6d  %s\n",
			e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			session,
			truncate(e.Model, 24),
			e.InputTokens, e.OutputTokens,
			e.LatencyMs,
			checkMark(e.Success),
		)
	}
}

func writeEventDetail(out io.Writer, e *store.LLMEvent) {
	fields := [][2]string{
		{"ID", strconv.Itoa(e.ID)},
		{"Time", e.Timestamp.Local().Format("2006-01-02 15:04:05")},
		{"Session", e.SessionID},
		{"Provider", e.Provider},
		{"Model", e.Model},
		{"Purpose", e.Purpose},
		{"Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens)},
		{"Latency", fmt.Sprintf("%dms", e.LatencyMs)},
		{"Success", strconv.FormatBool(e.Success)},
		{"Error", e.ErrorMessage},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		fmt.Fprintf(out, "%-10s %s\n", f[0]+":", f[1])
	}

	for _, section := range [][2]string{{"REQUEST", e.RequestBody}, {"RESPONSE", e.ResponseBody}} {
		body := section[1]
		if body == "" {
			body = "(not captured)"
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, section[0])
		rule(out)
		fmt.Fprintln(out, body)
	}
}

func writePurposeTable(out io.Writer, usage []store.LLMUsage) {
	fmt.Fprintln(out, "Usage by Purpose")
	rule(out)
	fmt.Fprintf(out, "%-16s  %6s  %10s  %10s  %8s\n", "Purpose", "Calls", "Input", "Output", "Avg Ms")
	for _, u := range usage {
		fmt.Fprintf(out, "%-16s  %6d  %10d  %10d  %8d\n",
			truncate(u.Purpose, 16), u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
	}
}

func writeCostTable(out io.Writer, sum costSummary) {
	fmt.Fprintln(out, "Estimated Cost (USD)")
	rule(out)
	fmt.Fprintf(out, "%-28s  %6s  %10s  %10s  %10s\n", "Model", "Calls", "Input", "Output", "Cost")
	for _, r := range sum.Rows {
		cost := "?"
		if r.Priced {
			cost = formatCost(r.Cost)
		}
		fmt.Fprintf(out, "%-28s  %6d  %10d  %10d  %10s\n",
			truncate(r.Model, 28), r.Calls, r.InputTokens, r.OutputTokens, cost)
	}
	rule(out)
	fmt.Fprintf(out, "%-28s  %6d  %34s\n", "TOTAL", sum.Calls, sum.String())
	if len(sum.Unpriced) > 0 {
		fmt.Fprintf(out, "\nPricing unavailable for: %s\n", strings.Join(sum.Unpriced, ", "))
	}
}

func checkMark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", itemgen.Purpose, "Only show calls made for this purpose")
	llmListCmd.Flags().Bool("all", false, "Show calls for every purpose")
	llmListCmd.Flags().StringP("session", "s", "", "Only show calls made for this session")
	llmStatsCmd.Flags().StringP("session", "s", "", "Restrict cost to one session")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
