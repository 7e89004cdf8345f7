package cmd

import (
	"context"
	"fmt"
	"io"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/gradeprobe/internal/assessment"
	"github.com/abhisek/gradeprobe/internal/screens/session"
	"github.com/abhisek/gradeprobe/internal/ui/components"
	"github.com/abhisek/gradeprobe/internal/ui/theme"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Take an adaptive assessment in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		eng, err := newEngine(ctx, appConfig, st)
		if err != nil {
			return err
		}
		defer eng.Close()

		req := assessment.StartRequest{
			StartingDifficulty: appConfig.StartingDifficulty,
			TotalItems:         eng.manager.DefaultTotalItems(),
		}
		req.Subject, _ = cmd.Flags().GetString("subject")
		if cmd.Flags().Changed("start") {
			req.StartingDifficulty, _ = cmd.Flags().GetFloat64("start")
		}
		if cmd.Flags().Changed("items") {
			req.TotalItems, _ = cmd.Flags().GetInt("items")
		}

		return runSession(ctx, eng.manager, req, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runSession starts a session and hands it to the interactive screen.
// The final report is printed to out after the screen exits.
func runSession(ctx context.Context, m *assessment.Manager, req assessment.StartRequest, in io.Reader, out io.Writer) error {
	h, err := m.Start(ctx, req)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	screen := session.New(ctx, m, h, req.Subject, req.TotalItems)
	p := tea.NewProgram(screen,
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		_ = m.Abort(context.WithoutCancel(ctx), h.SessionID)
		return fmt.Errorf("run session screen: %w", err)
	}

	fmt.Fprintln(out)
	switch {
	case screen.Err() != nil:
		return screen.Err()
	case screen.Aborted():
		fmt.Fprintln(out, theme.Hint.Render("Session aborted."))
	case screen.Result() != nil:
		fmt.Fprintln(out, components.RenderResult(screen.Result()))
	}
	return nil
}

func init() {
	runCmd.Flags().StringP("subject", "s", "math", "Subject to assess")
	runCmd.Flags().Float64("start", 5, "Starting difficulty (grade level)")
	runCmd.Flags().IntP("items", "n", assessment.DefaultTotalItems, "Number of questions")
}
