package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"jars/repository"
)

// 搜索结果上限
const searchLimit = 500

// keywordSynonyms 常用中英越关键词互相扩展
var keywordSynonyms = map[string][]string{
	"coffee":    {"cà phê", "coffee", "cafe"},
	"cà phê":    {"cà phê", "coffee", "cafe"},
	"drink":     {"nước", "đồ uống", "drink", "beverage"},
	"nước":      {"nước", "đồ uống", "drink", "beverage"},
	"food":      {"đồ ăn", "thức ăn", "food", "meal"},
	"đồ ăn":     {"đồ ăn", "thức ăn", "food", "meal"},
	"lunch":     {"bữa trưa", "lunch", "ăn trưa"},
	"dinner":    {"bữa tối", "dinner", "ăn tối"},
	"breakfast": {"bữa sáng", "breakfast", "ăn sáng"},

	"transport": {"giao thông", "transport", "xe", "taxi"},
	"taxi":      {"taxi", "xe taxi", "grab"},
	"grab":      {"grab", "xe grab", "taxi"},
	"bus":       {"xe buýt", "bus"},
	"xe buýt":   {"xe buýt", "bus"},

	"shopping": {"mua sắm", "shopping", "mua"},
	"mua sắm":  {"mua sắm", "shopping", "mua"},
	"clothes":  {"quần áo", "clothes", "áo", "quần"},
	"quần áo":  {"quần áo", "clothes", "áo", "quần"},

	"movie":    {"phim", "movie", "cinema"},
	"phim":     {"phim", "movie", "cinema"},
	"game":     {"game", "trò chơi", "gaming"},
	"trò chơi": {"game", "trò chơi", "gaming"},

	"electricity": {"điện", "electricity", "tiền điện"},
	"điện":        {"điện", "electricity", "tiền điện"},
	"water":       {"nước", "water", "tiền nước"},
	"internet":    {"internet", "wifi", "mạng"},
	"wifi":        {"internet", "wifi", "mạng"},

	"salary": {"lương", "salary", "tiền lương"},
	"lương":  {"lương", "salary", "tiền lương"},
	"bonus":  {"thưởng", "bonus", "tiền thưởng"},
	"thưởng": {"thưởng", "bonus", "tiền thưởng"},
}

// ExpandKeywords 按同义词表展开并去重，保持首次出现的顺序
func ExpandKeywords(keywords []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(k string) {
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		out = append(out, k)
	}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		lower := strings.ToLower(kw)
		if syn, ok := keywordSynonyms[lower]; ok {
			for _, s := range syn {
				add(s)
			}
			continue
		}
		add(kw)
	}
	return out
}

// keywordList 接受字符串数组或单个字符串
type keywordList []string

func (k *keywordList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*k = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s != "" {
		*k = []string{s}
	}
	return nil
}

type searchTransactionsTool struct {
	svc *Services
}

type searchArgs struct {
	Keywords        keywordList `json:"keywords"`
	JarCategoryID   uint        `json:"jar_category_id"`
	TransactionType string      `json:"transaction_type"`
	DaysBack        int         `json:"days_back"`
	StartDate       string      `json:"start_date"`
	EndDate         string      `json:"end_date"`
}

type foundTransaction struct {
	ID          uint      `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	AmountVND   int64     `json:"amount_vnd"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
	JarCategory string    `json:"jar_category"`
	Type        string    `json:"type"`
}

type categoryTransaction struct {
	ID          uint      `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type categoryGroup struct {
	Total        int64                 `json:"total"`
	Count        int                   `json:"count"`
	Transactions []categoryTransaction `json:"transactions"`
}

type searchSummary struct {
	TotalTransactions int   `json:"total_transactions"`
	TotalExpensesVND  int64 `json:"total_expenses_vnd"`
	TotalIncomeVND    int64 `json:"total_income_vnd"`
	ExpenseCount      int   `json:"expense_count"`
	IncomeCount       int   `json:"income_count"`
	NetAmountVND      int64 `json:"net_amount_vnd"`
}

// SearchResult search_transactions 的返回数据
type SearchResult struct {
	Transactions   []foundTransaction        `json:"transactions"`
	Summary        searchSummary             `json:"summary"`
	ByCategory     map[string]*categoryGroup `json:"by_category"`
	SearchKeywords []string                  `json:"search_keywords"`
}

func (t *searchTransactionsTool) Declaration() Declaration {
	return Declaration{
		Name:        "search_transactions",
		Description: "Search the user's transactions by keywords, jar or time period. Use it to answer questions about spending patterns or specific purchases.",
		Parameters: Schema{
			Type: "object",
			Properties: map[string]Property{
				"keywords": {
					Type:        "array",
					Items:       &Property{Type: "string"},
					Description: "Keywords to match in descriptions, English or Vietnamese (e.g. ['coffee', 'cà phê'])",
				},
				"jar_category_id":  {Type: "integer", Description: "Optional jar category ID: " + jarIDHint},
				"transaction_type": {Type: "string", Enum: []string{repository.TypeExpense, repository.TypeIncome, repository.TypeAll}, Default: repository.TypeAll},
				"days_back":        {Type: "integer", Description: "Optional: number of days back to search"},
				"start_date":       {Type: "string", Description: "Optional: start date in YYYY-MM-DD format"},
				"end_date":         {Type: "string", Description: "Optional: end date in YYYY-MM-DD format, inclusive"},
			},
			Required: []string{"keywords"},
		},
	}
}

func (t *searchTransactionsTool) Execute(ctx context.Context, userID uint, args json.RawMessage) Result {
	var in searchArgs
	if err := decodeArgs(args, &in); err != nil {
		return failure("Invalid arguments: " + err.Error())
	}
	if in.TransactionType == "" {
		in.TransactionType = repository.TypeAll
	}

	keywords := ExpandKeywords(in.Keywords)
	filter := repository.TransactionFilter{
		JarCategoryID: in.JarCategoryID,
		Type:          in.TransactionType,
		Keywords:      keywords,
		Limit:         searchLimit,
	}

	if in.DaysBack > 0 {
		start := t.svc.now().AddDate(0, 0, -in.DaysBack)
		filter.StartDate = &start
	} else {
		if in.StartDate != "" {
			start, err := time.ParseInLocation("2006-01-02", in.StartDate, time.UTC)
			if err != nil {
				return failure("start_date must be in YYYY-MM-DD format")
			}
			filter.StartDate = &start
		}
		if in.EndDate != "" {
			end, err := time.ParseInLocation("2006-01-02", in.EndDate, time.UTC)
			if err != nil {
				return failure("end_date must be in YYYY-MM-DD format")
			}
			end = end.AddDate(0, 0, 1)
			filter.EndDate = &end
		}
	}

	page, err := t.svc.Ledger.ListTransactions(ctx, userID, filter)
	if err != nil {
		return failureFromError(ctx, err, "Failed to search transactions")
	}

	res := SearchResult{
		Transactions:   make([]foundTransaction, 0, len(page.List)),
		ByCategory:     make(map[string]*categoryGroup),
		SearchKeywords: keywords,
	}
	if res.SearchKeywords == nil {
		res.SearchKeywords = []string{}
	}
	for _, tx := range page.List {
		name := tx.CategoryName
		if name == "" {
			name = "Unknown"
		}
		kind := repository.TypeIncome
		amountVND := tx.AmountCents
		if tx.AmountCents < 0 {
			kind = repository.TypeExpense
			amountVND = -tx.AmountCents
			res.Summary.TotalExpensesVND += amountVND
			res.Summary.ExpenseCount++
		} else {
			res.Summary.TotalIncomeVND += amountVND
			res.Summary.IncomeCount++
		}

		res.Transactions = append(res.Transactions, foundTransaction{
			ID:          tx.ID,
			AmountCents: tx.AmountCents,
			AmountVND:   amountVND,
			Description: tx.Description,
			OccurredAt:  tx.OccurredAt,
			JarCategory: name,
			Type:        kind,
		})

		g, ok := res.ByCategory[name]
		if !ok {
			g = &categoryGroup{}
			res.ByCategory[name] = g
		}
		g.Total += tx.AmountCents
		g.Count++
		g.Transactions = append(g.Transactions, categoryTransaction{
			ID:          tx.ID,
			AmountCents: tx.AmountCents,
			Description: tx.Description,
			OccurredAt:  tx.OccurredAt,
		})
	}
	res.Summary.TotalTransactions = len(res.Transactions)
	res.Summary.NetAmountVND = res.Summary.TotalIncomeVND - res.Summary.TotalExpensesVND

	return Result{Success: true, Data: res}
}
