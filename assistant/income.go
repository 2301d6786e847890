package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"jars/models"
	"jars/service"

	"github.com/shopspring/decimal"
)

var monthYearPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// 助手未给出比例时的默认分配
var defaultIncomePercentages = []struct {
	Jar     string
	Field   string
	Percent float64
}{
	{models.JarNecessity, "necessity_percentage", 55},
	{models.JarPlay, "play_percentage", 10},
	{models.JarEducation, "education_percentage", 10},
	{models.JarInvestment, "investment_percentage", 10},
	{models.JarCharity, "charity_percentage", 5},
	{models.JarSavings, "savings_percentage", 10},
}

type addMonthlyIncomeTool struct {
	svc *Services
}

func (t *addMonthlyIncomeTool) Declaration() Declaration {
	props := map[string]Property{
		"monthly_income_amount": {Type: "number", Description: "Total monthly income in VND"},
		"month_year":            {Type: "string", Description: "Month in YYYY-MM format, defaults to the current month"},
	}
	for _, p := range defaultIncomePercentages {
		props[p.Field] = Property{
			Type:        "number",
			Description: fmt.Sprintf("Percentage allocated to %s (default %s)", p.Jar, service.FormatPercent(p.Percent)),
			Default:     p.Percent,
		}
	}
	return Declaration{
		Name:        "add_monthly_income",
		Description: "Record the user's income for a month and split it across the six jars. Calling it again for the same month replaces the previous allocation.",
		Parameters: Schema{
			Type:       "object",
			Properties: props,
			Required:   []string{"monthly_income_amount"},
		},
	}
}

func (t *addMonthlyIncomeTool) Execute(ctx context.Context, userID uint, args json.RawMessage) Result {
	var raw map[string]json.RawMessage
	if err := decodeArgs(args, &raw); err != nil {
		return failure("Invalid arguments: " + err.Error())
	}

	var amount amountArg
	if v, ok := raw["monthly_income_amount"]; ok {
		if err := json.Unmarshal(v, &amount); err != nil {
			return failure("Invalid monthly income amount")
		}
	}
	total, ok := amount.positiveCents()
	if !ok {
		return failure("Invalid monthly income amount")
	}

	month := service.FormatMonth(t.svc.now())
	if v, ok := raw["month_year"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return failure(`Month year must be in YYYY-MM format (e.g., "2024-01")`)
		}
		if s = strings.TrimSpace(s); s != "" {
			month = s
		}
	}
	if !monthYearPattern.MatchString(month) {
		return failure(`Month year must be in YYYY-MM format (e.g., "2024-01")`)
	}

	percentages := make(map[string]float64, len(defaultIncomePercentages))
	parts := make([]string, 0, len(defaultIncomePercentages))
	for _, p := range defaultIncomePercentages {
		pct := p.Percent
		if v, ok := raw[p.Field]; ok && string(v) != "null" {
			var a amountArg
			if err := json.Unmarshal(v, &a); err != nil || !a.set {
				return failure(fmt.Sprintf("Invalid %s", p.Field))
			}
			pct = a.value.InexactFloat64()
		}
		percentages[p.Jar] = pct
		parts = append(parts, fmt.Sprintf("%s: %s%%", p.Jar, service.FormatPercent(pct)))
	}

	sum := service.SumPercentages(percentages)
	if sum.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
		return failure(fmt.Sprintf("Allocation percentages must total 100%%. Current total: %s%%", sum.String()))
	}

	alloc, err := t.svc.Allocation.AddMonthlyIncome(ctx, userID, month, total, percentages)
	if err != nil {
		return failureFromError(ctx, err, "Failed to add monthly income")
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("Monthly income of %s for %s added successfully! Allocated to jars: %s",
			service.FormatVND(total), month, strings.Join(parts, ", ")),
		Data: map[string]interface{}{
			"income_entry":    alloc.Entry,
			"transactions":    alloc.Transactions,
			"total_allocated": alloc.AllocatedTotal(),
		},
	}
}
