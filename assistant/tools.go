package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jars/service"

	"github.com/shopspring/decimal"
)

// Services 工具依赖的业务服务
type Services struct {
	Allocation *service.AllocationService
	Ledger     *service.LedgerService
	Targets    *service.SavingTargetService
	Projection *service.ProjectionService
	// 为空时使用 time.Now
	Now func() time.Time
}

func (s *Services) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// NewDefaultRegistry 注册全部内置工具
func NewDefaultRegistry(svc *Services) *Registry {
	return NewRegistry(
		&addMonthlyIncomeTool{svc: svc},
		&updateTransactionTool{svc: svc},
		&setSavingTargetTool{svc: svc},
		&searchTransactionsTool{svc: svc},
		&predictSavingsTool{svc: svc},
		&swapJarTool{svc: svc},
	)
}

const jarIDHint = "1=Necessity, 2=Play, 3=Education, 4=Investment, 5=Charity, 6=Savings"

// amountArg 数字或数字字符串，单位为 VND
type amountArg struct {
	set   bool
	value decimal.Decimal
}

func (a *amountArg) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("金额格式错误: %s", string(b))
		}
		n = json.Number(strings.TrimSpace(s))
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return fmt.Errorf("金额格式错误: %s", string(b))
	}
	a.set, a.value = true, d
	return nil
}

// positiveCents 四舍五入到整数，必须大于0
func (a amountArg) positiveCents() (int64, bool) {
	if !a.set {
		return 0, false
	}
	v := a.value.Round(0)
	if !v.IsPositive() {
		return 0, false
	}
	return v.IntPart(), true
}
