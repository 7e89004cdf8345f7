package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/gradeprobe/internal/store"
	"github.com/abhisek/gradeprobe/internal/ui/components"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect finished assessment results",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent results",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		results, err := s.SessionRepo().Results(cmd.Context(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query results: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No results found.")
			return nil
		}

		fmt.Fprintf(out, "%-36s  %-19s  %-10s  %6s  %6s  %s\n",
			"Session", "Finished", "Level", "Skill", "Score", "Weaknesses")
		fmt.Fprintln(out, strings.Repeat("─", 100))

		for _, r := range results {
			weak := strings.Join(r.Result.Weaknesses, ", ")
			if weak == "" {
				weak = "-"
			}
			fmt.Fprintf(out, "%-36s  %-19s  %-10s  %6.1f  %5.0f%%  %s\n",
				r.SessionID,
				r.Timestamp.Local().Format("2006-01-02 15:04:05"),
				r.Result.GradeLevelLabel,
				r.Result.SkillLevel,
				r.Result.ScorePercentage,
				weak,
			)
		}
		return nil
	},
}

var resultsViewCmd = &cobra.Command{
	Use:   "view <session-id>",
	Short: "View a result with its responses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		repo := s.SessionRepo()

		r, err := repo.Result(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get result: %w", err)
		}
		if r == nil {
			return fmt.Errorf("result for session %s not found", args[0])
		}

		responses, err := repo.Responses(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get responses: %w", err)
		}

		usage, err := s.EventRepo().LLMUsageByModel(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get generation usage: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session:   %s\n", r.SessionID)
		fmt.Fprintf(out, "Finished:  %s\n", r.Timestamp.Local().Format("2006-01-02 15:04:05"))
		if len(usage) > 0 {
			fmt.Fprintf(out, "Items:     %s\n", estimateCost(usage))
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, components.RenderResult(&r.Result))

		if len(responses) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "%-3s  %-16s  %-14s  %5s  %-20s  %s\n", "#", "Skill", "Domain", "Level", "Answer", "OK")
			fmt.Fprintln(out, strings.Repeat("─", 72))
			for _, resp := range responses {
				ok := "✓"
				if !resp.IsCorrect {
					ok = "✗"
				}
				fmt.Fprintf(out, "%-3d  %-16s  %-14s  %5.1f  %-20s  %s\n",
					resp.SequenceIndex,
					truncate(resp.SkillCode, 16),
					truncate(resp.Domain, 14),
					resp.DifficultyAtTime,
					truncate(resp.StudentAnswer, 20),
					ok,
				)
			}
		}
		return nil
	},
}

func init() {
	resultsListCmd.Flags().IntP("limit", "n", 20, "Number of results to show")

	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsViewCmd)
}
