package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-assistant/internal/session"
)

var (
	askSession  string
	askLanguage string
	askStages   []string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Run one chat turn and print the answer",
	Long: `Ask the assistant a question against the local store.

Examples:
  assistant ask "how much did I spend last week?"
  assistant ask --stages analysis,budget "can I afford a new laptop?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session id to continue")
	askCmd.Flags().StringVarP(&askLanguage, "language", "l", "", "response language")
	askCmd.Flags().StringSliceVar(&askStages, "stages", nil, "stage override, e.g. analysis,budget")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if askStages != nil {
		if _, err := a.Orchestrator.Registry().ParseStageNames(askStages); err != nil {
			return err
		}
	}

	res, err := a.Sessions.Chat(ctx, session.ChatRequest{
		UserID:    userID,
		SessionID: askSession,
		Message:   strings.Join(args, " "),
		Language:  askLanguage,
		Source:    "cli",
		Stages:    askStages,
	})
	if err != nil {
		return fmt.Errorf("failed to process: %w", err)
	}

	fmt.Println(res.Response)
	fmt.Println()

	faint := color.New(color.Faint)
	faint.Printf("session %s\n", res.SessionID)
	color.New(color.FgYellow).Printf("trace: %s\n", strings.Join(res.Trace, " > "))

	if len(res.Citations) > 0 {
		color.New(color.FgGreen).Println("citations:")
		for _, c := range res.Citations {
			faint.Printf("  [%s %.2f] %s\n", c.Source, c.Score, c.Snippet)
		}
	}
	if res.NeedsHumanReview {
		color.New(color.FgRed, color.Bold).Println("flagged for human review")
	}
	return nil
}
