package service

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// AllocateShare 按百分比计算分配金额，四舍五入到最小货币单位
// decimal.Round 为远离零舍入，对正数即四舍五入
func AllocateShare(totalCents int64, percentage float64) int64 {
	return decimal.NewFromInt(totalCents).
		Mul(decimal.NewFromFloat(percentage)).
		Div(hundred).
		Round(0).
		IntPart()
}

// ToMajor 最小单位转为主单位用于展示
func ToMajor(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// FromMajor 主单位转为最小单位
func FromMajor(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

// SumPercentages 精确求和，避免浮点累加误差
func SumPercentages(p map[string]float64) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range p {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum
}
