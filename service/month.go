package service

import (
	"strings"
	"time"
)

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

// ParseMonth 解析 YYYY-MM 或 YYYY-MM-DD，归一化为当月1日 00:00 UTC
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layout := monthLayout
	if len(s) == len(dateLayout) {
		layout = dateLayout
	}
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return time.Time{}, NewValidationError("month_year", "月份格式应为 YYYY-MM")
	}
	return MonthStart(t), nil
}

// MonthStart 当月1日 00:00 UTC
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths 月初日期加减月份
func AddMonths(monthStart time.Time, n int) time.Time {
	return time.Date(monthStart.Year(), monthStart.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// FormatMonth 格式化为 YYYY-MM
func FormatMonth(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
