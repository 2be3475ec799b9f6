package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/knowledge"
)

var (
	seedKnowledge string
	seedTarget    string
	seedSkipDemo  bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo transactions, a profile and goals, and knowledge documents",
	Long: `Load demo data for --user and import knowledge documents.

Knowledge sources:
  builtin  bundled finance notes (default)
  file     a JSON file of documents, --target path/to/docs.json
  gcs      a JSON object in Cloud Storage, --target gs://bucket/docs.json
  notion   a Notion database, --target <database id> or ASSISTANT_KNOWLEDGE_NOTION_DATABASE_ID`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedKnowledge, "knowledge", "k", knowledge.KindBuiltin, "knowledge source: builtin, file, gcs or notion")
	seedCmd.Flags().StringVarP(&seedTarget, "target", "t", "", "file path, gs:// URI or Notion database id")
	seedCmd.Flags().BoolVar(&seedSkipDemo, "skip-demo", false, "only import knowledge")
	rootCmd.AddCommand(seedCmd)
}

type transactionWriter interface {
	InsertTransactions(ctx context.Context, txs []domain.Transaction) error
}

type schemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ok := color.New(color.FgGreen)

	if !seedSkipDemo {
		existing, err := a.Transactions.ReadTransactions(ctx, userID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			fmt.Printf("User %s already has %d transactions, skipping demo ledger\n", userID, len(existing))
		} else {
			w, isWriter := a.Transactions.(transactionWriter)
			if !isWriter {
				return fmt.Errorf("transaction source %q is read-only", a.Config.Storage.TransactionSource)
			}
			if s, isEnsurer := a.Transactions.(schemaEnsurer); isEnsurer {
				if err := s.EnsureSchema(ctx); err != nil {
					return err
				}
			}
			txs := demoTransactions(userID, a.Engine.Now())
			if err := w.InsertTransactions(ctx, txs); err != nil {
				return err
			}
			ok.Printf("Inserted %d demo transactions\n", len(txs))
		}

		if err := a.Store.UpsertProfile(ctx, userID, "Demo User"); err != nil {
			return err
		}
		profile, err := a.Store.ReadUserProfile(ctx, userID)
		if err != nil {
			return err
		}
		if len(profile.Goals) == 0 {
			for _, g := range demoGoals() {
				if err := a.Store.AddGoal(ctx, userID, g); err != nil {
					return err
				}
			}
			ok.Printf("Added %d goals\n", len(demoGoals()))
		}
	}

	src, err := knowledge.NewSource(seedKnowledge, seedTarget, a.Sources)
	if err != nil {
		return err
	}
	res, err := a.Syncer.Sync(ctx, src)
	if err != nil {
		return err
	}
	ok.Printf("Knowledge from %s: loaded %d, imported %d, skipped %d\n", res.Source, res.Loaded, res.Imported, res.Skipped)
	return nil
}

// demoTransactions builds three months of a salaried user's ledger ending
// at now.
func demoTransactions(userID string, now time.Time) []domain.Transaction {
	type entry struct {
		day         int
		amount      float64
		typ         domain.TransactionType
		category    string
		description string
		merchant    string
	}
	monthly := []entry{
		{1, 85000, domain.Credit, "Salary", "Monthly salary", "Acme Corp"},
		{2, 22000, domain.Debit, "Rent", "Apartment rent", "Landlord"},
		{5, 1800, domain.Debit, "Utilities", "Electricity bill", "City Power"},
		{7, 999, domain.Debit, "Subscriptions", "Streaming and cloud storage", "Various"},
		{9, 4200, domain.Debit, "Groceries", "Weekly groceries", "FreshMart"},
		{12, 2600, domain.Debit, "Dining", "Dinner with friends", "Bistro 21"},
		{15, 10000, domain.Debit, "Investments", "Index fund SIP", "Brokerage"},
		{16, 3900, domain.Debit, "Groceries", "Weekly groceries", "FreshMart"},
		{19, 1500, domain.Debit, "Transport", "Fuel", "City Fuels"},
		{22, 3100, domain.Debit, "Shopping", "Clothes", "Mall Store"},
		{23, 4400, domain.Debit, "Groceries", "Weekly groceries", "FreshMart"},
		{26, 1900, domain.Debit, "Dining", "Food delivery", "QuickEats"},
	}

	var txs []domain.Transaction
	for back := 2; back >= 0; back-- {
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -back, 0)
		for _, e := range monthly {
			at := month.AddDate(0, 0, e.day-1).Add(10 * time.Hour)
			if at.After(now) {
				continue
			}
			txs = append(txs, domain.Transaction{
				ID:          uuid.NewString(),
				UserID:      userID,
				Amount:      e.amount,
				Type:        e.typ,
				Category:    e.category,
				Description: e.description,
				Merchant:    e.merchant,
				OccurredAt:  at,
			})
		}
	}

	// An outsized purchase for the anomaly report.
	txs = append(txs, domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      38000,
		Type:        domain.Debit,
		Category:    "Electronics",
		Description: "New laptop",
		Merchant:    "TechWorld",
		OccurredAt:  now.AddDate(0, 0, -3),
	})
	return txs
}

func demoGoals() []domain.Goal {
	return []domain.Goal{
		{Goal: "Emergency fund", Category: "Savings", TargetAmount: 300000, CurrentAmount: 120000},
		{Goal: "Trip to Japan", Category: "Travel", TargetAmount: 250000, CurrentAmount: 40000},
	}
}
