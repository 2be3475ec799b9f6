package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-assistant/internal/stats"
)

var summaryLimit int

var summaryCmd = &cobra.Command{
	Use:   "summary [period]",
	Short: "Summarize transactions over a period such as \"last 2 weeks\"",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().IntVarP(&summaryLimit, "limit", "n", 10, "transactions to list")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	now := a.Engine.Now()
	rng := stats.DefaultTimeRange(now)
	if phrase := strings.Join(args, " "); strings.TrimSpace(phrase) != "" {
		rng = stats.ExtractTimeRange(phrase, now)
	}

	sum, err := a.Engine.TransactionSummary(ctx, userID, rng.Start, rng.End, summaryLimit)
	if err != nil {
		return err
	}

	symbol := a.Config.Assistant.CurrencySymbol
	printHeader(fmt.Sprintf("%s (%s to %s)", rng.Label, sum.StartDate, sum.EndDateExclusive))
	fmt.Printf("Transactions: %d\n", sum.TransactionCount)
	color.New(color.FgRed).Printf("Spent:        %s\n", money(symbol, sum.TotalDebit))
	color.New(color.FgGreen).Printf("Received:     %s\n", money(symbol, sum.TotalCredit))
	fmt.Printf("Net:          %s\n", money(symbol, sum.NetCashflow))

	if len(sum.TopCategories) > 0 {
		fmt.Println()
		color.New(color.Bold).Println("Top categories")
		for _, c := range sum.TopCategories {
			fmt.Printf("  %-20s %s\n", c.Name, money(symbol, c.Amount))
		}
	}
	if len(sum.Transactions) > 0 {
		fmt.Println()
		color.New(color.Bold).Println("Transactions")
		faint := color.New(color.Faint)
		for _, t := range sum.Transactions {
			faint.Printf("  %s ", t.Date)
			fmt.Printf("%-7s %12s  %-14s %s\n", t.TransactionType, money(symbol, t.Amount), t.Category, t.Description)
		}
	}
	return nil
}

func money(symbol string, v float64) string {
	return symbol + stats.FormatAmount(v)
}
