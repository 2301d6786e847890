package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"jars/models"
	"jars/repository"
	"jars/service"
)

type updateTransactionTool struct {
	svc *Services
}

type updateTransactionArgs struct {
	Amount          amountArg `json:"amount"`
	JarCategoryID   uint      `json:"jar_category_id"`
	Description     string    `json:"description"`
	TransactionType string    `json:"transaction_type"`
}

func (t *updateTransactionTool) Declaration() Declaration {
	return Declaration{
		Name:        "update_transaction",
		Description: "Add a new income or expense transaction to a specific jar. Use this when the user mentions spending money on something or earning money from a source.",
		Parameters: Schema{
			Type: "object",
			Properties: map[string]Property{
				"amount":           {Type: "number", Description: "Amount in VND, always positive. The sign comes from transaction_type."},
				"jar_category_id":  {Type: "integer", Description: "Jar category ID: " + jarIDHint},
				"description":      {Type: "string", Description: "Short description, e.g. 'Coffee at Highlands'"},
				"transaction_type": {Type: "string", Enum: []string{repository.TypeIncome, repository.TypeExpense}, Description: "Money coming in (income) or going out (expense)"},
			},
			Required: []string{"amount", "jar_category_id", "transaction_type"},
		},
	}
}

func (t *updateTransactionTool) Execute(ctx context.Context, userID uint, args json.RawMessage) Result {
	var in updateTransactionArgs
	if err := decodeArgs(args, &in); err != nil {
		return failure("Invalid arguments: " + err.Error())
	}

	amount, ok := in.Amount.positiveCents()
	if !ok {
		return failure("Amount must be a positive number in VND.")
	}
	if in.JarCategoryID == 0 {
		return failure("jar_category_id is required (" + jarIDHint + ")")
	}
	switch in.TransactionType {
	case repository.TypeExpense:
		amount = -amount
	case repository.TypeIncome:
	default:
		return failure("transaction_type must be 'income' or 'expense'")
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = in.TransactionType
	}

	tx, err := t.svc.Ledger.AddTransaction(ctx, userID, service.TransactionInput{
		JarCategoryID: in.JarCategoryID,
		AmountCents:   amount,
		Description:   desc,
		Source:        models.SourceChatbot,
	})
	if err != nil {
		return failureFromError(ctx, err, "Failed to add transaction")
	}
	return Result{Success: true, Message: "Transaction added successfully", Data: tx}
}
