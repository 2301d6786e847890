package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jars/service"
)

type setSavingTargetTool struct {
	svc *Services
}

func (t *setSavingTargetTool) Declaration() Declaration {
	return Declaration{
		Name:        "set_saving_target",
		Description: "Set or replace the user's savings target amount.",
		Parameters: Schema{
			Type: "object",
			Properties: map[string]Property{
				"target_amount": {Type: "number", Description: "Target amount in VND"},
			},
			Required: []string{"target_amount"},
		},
	}
}

func (t *setSavingTargetTool) Execute(ctx context.Context, userID uint, args json.RawMessage) Result {
	var in struct {
		TargetAmount amountArg `json:"target_amount"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return failure("Target amount must be a positive number in VND.")
	}
	amount, ok := in.TargetAmount.positiveCents()
	if !ok {
		return failure("Target amount must be a positive number in VND.")
	}

	target, err := t.svc.Targets.SetSavingTarget(ctx, userID, amount)
	if err != nil {
		return failureFromError(ctx, err, "Failed to set saving target")
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Saving target set to %s", service.FormatVND(amount)),
		Data: map[string]interface{}{
			"target_amount": target.TargetAmountCents,
			"created_at":    target.CreatedAt,
		},
	}
}

type predictSavingsTool struct {
	svc *Services
}

func (t *predictSavingsTool) Declaration() Declaration {
	return Declaration{
		Name:        "predict_savings",
		Description: "Predict when the user can reach a savings goal or afford a purchase based on their savings history.",
		Parameters: Schema{
			Type: "object",
			Properties: map[string]Property{
				"target_amount":      {Type: "number", Description: "Target amount in VND"},
				"target_description": {Type: "string", Description: "What the user is saving for, e.g. 'car' or 'vacation'"},
				"forecast_periods":   {Type: "integer", Description: "Number of periods to forecast", Default: 24},
				"forecast_frequency": {Type: "string", Enum: []string{service.FreqDaily, service.FreqWeekly, service.FreqMonthly}, Default: service.FreqMonthly},
			},
			Required: []string{"target_amount", "target_description"},
		},
	}
}

func (t *predictSavingsTool) Execute(ctx context.Context, userID uint, args json.RawMessage) Result {
	var in struct {
		TargetAmount      amountArg `json:"target_amount"`
		TargetDescription string    `json:"target_description"`
		ForecastPeriods   int       `json:"forecast_periods"`
		ForecastFrequency string    `json:"forecast_frequency"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return failure("Invalid arguments: " + err.Error())
	}
	amount, ok := in.TargetAmount.positiveCents()
	if !ok {
		return failure("Target amount must be a positive number in VND.")
	}
	desc := strings.TrimSpace(in.TargetDescription)
	if desc == "" {
		return failure("target_description is required")
	}

	p, err := t.svc.Projection.GetSavingsProjection(ctx, userID, amount)
	if err != nil {
		res := failureFromError(ctx, err, "Failed to predict savings")
		res.Data = unreachable(amount, desc, 0)
		return res
	}

	if !p.CanReachTarget {
		return Result{Success: false, Message: p.Message, Data: unreachable(amount, desc, p.CurrentSavings)}
	}

	targetDate := "Unknown"
	if p.ProjectedDate != nil {
		if d, err := time.Parse("2006-01-02", *p.ProjectedDate); err == nil {
			targetDate = d.Format("02/01/2006")
		}
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Based on your current savings rate, you can reach your goal of %s for %s by %s. You currently have %s saved.",
			service.FormatVND(amount), desc, targetDate, service.FormatVND(int64(p.CurrentSavings))),
		Data: map[string]interface{}{
			"target_amount":       amount,
			"target_description":  desc,
			"current_savings":     p.CurrentSavings,
			"target_date":         p.ProjectedDate,
			"months_to_target":    p.MonthsToTarget,
			"can_reach_target":    p.CanReachTarget,
			"avg_monthly_savings": p.AvgMonthlySavings,
		},
	}
}

func unreachable(amount int64, desc string, current float64) map[string]interface{} {
	return map[string]interface{}{
		"target_amount":      amount,
		"target_description": desc,
		"current_savings":    current,
		"target_date":        nil,
		"forecast":           []interface{}{},
	}
}
