package knowledge

import (
	"context"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// BuiltinSourceName is the source label of the bundled documents.
const BuiltinSourceName = "builtin"

var builtinDocs = []domain.KnowledgeDoc{
	{
		Title: "Budgeting Basics",
		Text: "Build a realistic plan you can stick with every week. Track spending by need, want, and debt. " +
			"Set a weekly spend cap for variable categories. Review every Sunday and adjust with one small improvement.",
		Tags: []string{"budgeting", "habits"},
	},
	{
		Title: "The 80/20 budget",
		Text: "Automatically move 20% of income to savings on payday and plan essential and discretionary spending " +
			"inside the remaining 80%. If spending runs above the 80% line, trim variable categories by about 10% first.",
		Tags: []string{"budgeting", "savings"},
	},
	{
		Title: "Investing 101",
		Text: "Understand risk, compounding, and long-term discipline. Learn risk vs return with simple examples. " +
			"Compare diversified funds vs single stock risk. Set a monthly auto-invest amount and hold long term.",
		Tags: []string{"investing", "education"},
	},
	{
		Title: "Diversify risk",
		Text: "Spread money across assets so one bad pick does not break your progress. " +
			"Build emergency cash before increasing risk exposure.",
		Tags: []string{"investing", "risk"},
	},
	{
		Title: "Debt Management",
		Text: "Pay down high-interest debt without burning out. List balances and interest rates from highest to lowest. " +
			"Choose avalanche or snowball method for your personality. Automate your minimum plus one extra payment each cycle.",
		Tags: []string{"debt"},
	},
	{
		Title: "Impulse spending",
		Text: "Use a 24-hour pause rule for impulse purchases and keep a list of low-cost alternatives for stressful days. " +
			"A no-spend weekend is an easy way to reset habits.",
		Tags: []string{"behaviour", "habits"},
	},
}

// BuiltinSource serves the documents bundled with the binary.
type BuiltinSource struct{}

func (BuiltinSource) Name() string { return BuiltinSourceName }

// Load returns fresh copies of the bundled documents.
func (BuiltinSource) Load(ctx context.Context) ([]domain.KnowledgeDoc, error) {
	out := make([]domain.KnowledgeDoc, 0, len(builtinDocs))
	for _, d := range builtinDocs {
		d.Tags = append([]string{}, d.Tags...)
		d.Source = BuiltinSourceName
		out = append(out, d)
	}
	return out, nil
}
