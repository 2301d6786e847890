package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"jars/middleware"
	"jars/repository"
	"jars/service"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	ledger *service.LedgerService
}

// NewExportHandler 创建导出处理器
func NewExportHandler(ledger *service.LedgerService) *ExportHandler {
	return &ExportHandler{ledger: ledger}
}

var exportHeaders = []string{"ID", "罐子", "金额", "类型", "描述", "来源", "发生时间"}

// exportFilter 导出的时间范围，两个参数都必填，结束日期包含当天
func exportFilter(c *gin.Context) (repository.TransactionFilter, string, bool) {
	startStr, endStr := c.Query("start_time"), c.Query("end_time")
	if startStr == "" || endStr == "" {
		BadRequest(c, "请提供开始时间和结束时间")
		return repository.TransactionFilter{}, "", false
	}
	start, err := time.ParseInLocation("2006-01-02", startStr, time.UTC)
	if err != nil {
		BadRequest(c, "开始时间格式错误，应为: 2006-01-02")
		return repository.TransactionFilter{}, "", false
	}
	end, err := time.ParseInLocation("2006-01-02", endStr, time.UTC)
	if err != nil {
		BadRequest(c, "结束时间格式错误，应为: 2006-01-02")
		return repository.TransactionFilter{}, "", false
	}
	end = end.AddDate(0, 0, 1)
	return repository.TransactionFilter{StartDate: &start, EndDate: &end}, fmt.Sprintf("transactions_%s_%s", startStr, endStr), true
}

func exportRow(t repository.TransactionWithCategory) []string {
	kind := "收入"
	if t.AmountCents < 0 {
		kind = "支出"
	}
	return []string{
		strconv.FormatUint(uint64(t.ID), 10),
		t.CategoryName,
		strconv.FormatInt(t.AmountCents, 10),
		kind,
		t.Description,
		t.Source,
		t.OccurredAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

// ExportCSV 导出流水为 CSV
// @Summary 导出流水 CSV
// @Description 根据时间范围导出流水为 CSV 文件
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param start_time query string true "开始时间 (2024-01-01)"
// @Param end_time query string true "结束时间 (2024-12-31)"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	f, name, ok := exportFilter(c)
	if !ok {
		return
	}
	list, err := h.ledger.ExportTransactions(c.Request.Context(), middleware.GetCurrentUserID(c), f)
	if err != nil {
		respondError(c, err, "查询数据失败")
		return
	}

	buf := new(bytes.Buffer)
	// 添加 BOM 以支持 Excel 中文显示
	buf.WriteString("\xEF\xBB\xBF")
	writer := csv.NewWriter(buf)
	if err := writer.Write(exportHeaders); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}
	for _, t := range list {
		if err := writer.Write(exportRow(t)); err != nil {
			InternalError(c, "生成 CSV 失败")
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportExcel 导出流水为 Excel
// @Summary 导出流水 Excel
// @Description 根据时间范围导出流水为 xlsx 文件，末行为收支合计
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start_time query string true "开始时间 (2024-01-01)"
// @Param end_time query string true "结束时间 (2024-12-31)"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	filter, name, ok := exportFilter(c)
	if !ok {
		return
	}
	list, err := h.ledger.ExportTransactions(c.Request.Context(), middleware.GetCurrentUserID(c), filter)
	if err != nil {
		respondError(c, err, "查询数据失败")
		return
	}

	buf, err := buildWorkbook(list)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "生成 Excel 失败"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", name))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func buildWorkbook(list []repository.TransactionWithCategory) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "流水"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}
	dataStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}
	summaryStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}

	widths := map[string]float64{"A": 10, "B": 14, "C": 15, "D": 8, "E": 32, "F": 14, "G": 20}
	for col, w := range widths {
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, err
		}
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	f.SetCellStyle(sheet, "A1", "G1", headerStyle)

	var income, expense int64
	for i, t := range list {
		row := i + 2
		values := exportRow(t)
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			if j == 2 {
				f.SetCellValue(sheet, cell, t.AmountCents)
				continue
			}
			f.SetCellValue(sheet, cell, v)
		}
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), dataStyle)
		if t.AmountCents < 0 {
			expense += -t.AmountCents
		} else {
			income += t.AmountCents
		}
	}

	summaryRow := len(list) + 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "合计")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("收入 %d", income))
	f.SetCellValue(sheet, fmt.Sprintf("C%d", summaryRow), income-expense)
	f.SetCellValue(sheet, fmt.Sprintf("E%d", summaryRow), fmt.Sprintf("支出 %d", expense))
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("G%d", summaryRow), summaryStyle)

	return f.WriteToBuffer()
}
