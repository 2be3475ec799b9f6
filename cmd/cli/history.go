package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historySession string
	historyLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print a conversation transcript",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historySession, "session", "s", "", "session id (default: all of the user's messages)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "maximum messages to print")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	messages, err := a.Sessions.History(ctx, userID, historySession, historyLimit)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Println("No messages.")
		return nil
	}

	user := color.New(color.FgCyan, color.Bold)
	assistant := color.New(color.FgGreen, color.Bold)
	faint := color.New(color.Faint)

	for _, m := range messages {
		role := user
		if m.Role == "assistant" {
			role = assistant
		}
		faint.Printf("%s ", m.CreatedAt.Local().Format("2006-01-02 15:04"))
		role.Printf("%s: ", m.Role)
		fmt.Println(m.Content)
	}
	return nil
}
