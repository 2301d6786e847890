package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"jars/service"
)

type swapJarTool struct {
	svc *Services
}

func (t *swapJarTool) Declaration() Declaration {
	return Declaration{
		Name:        "swap_jar",
		Description: "Transfer money from one jar to another for the authenticated user.",
		Parameters: Schema{
			Type: "object",
			Properties: map[string]Property{
				"fromJarName": {Type: "string", Description: "Source jar name"},
				"toJarName":   {Type: "string", Description: "Target jar name"},
				"amountCents": {Type: "number", Description: "Amount to transfer in VND"},
				"description": {Type: "string", Description: "Description for the transfer", Default: "Jar swap"},
			},
			Required: []string{"fromJarName", "toJarName", "amountCents"},
		},
	}
}

func (t *swapJarTool) Execute(ctx context.Context, userID uint, args json.RawMessage) Result {
	var in struct {
		From        string    `json:"fromJarName"`
		To          string    `json:"toJarName"`
		Amount      amountArg `json:"amountCents"`
		Description string    `json:"description"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return failure("Invalid arguments: " + err.Error())
	}
	amount, ok := in.Amount.positiveCents()
	if !ok {
		return failure("Amount must be a positive number in VND.")
	}
	from, to := strings.TrimSpace(in.From), strings.TrimSpace(in.To)
	if from == "" || to == "" {
		return failure("fromJarName and toJarName are required")
	}

	res, err := t.svc.Ledger.SwapJar(ctx, userID, from, to, amount, in.Description)
	if err != nil {
		return failureFromError(ctx, err, "Failed to swap jars")
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Moved %s from %s to %s", service.FormatVND(amount), from, to),
		Data:    res,
	}
}
