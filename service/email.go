package service

import (
	"fmt"
	"html"
	"strings"

	"jars/config"

	"gopkg.in/gomail.v2"
)

// EmailService 邮件服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// SendAllocationSummary 发送月度收入分配汇总
func (s *EmailService) SendAllocationSummary(toEmail, name string, alloc *IncomeAllocation) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("邮件服务未启用，请配置 JARS_EMAIL_ENABLED=true")
	}
	if alloc == nil || alloc.Entry == nil {
		return fmt.Errorf("分配结果为空")
	}

	subject := fmt.Sprintf("【六罐理财】%s 收入分配明细", FormatMonth(alloc.Entry.MonthYear))
	body := s.generateAllocationEmailBody(name, alloc)

	return s.sendEmail(toEmail, subject, body)
}

// generateAllocationEmailBody 生成分配汇总邮件内容
func (s *EmailService) generateAllocationEmailBody(name string, alloc *IncomeAllocation) string {
	var rows strings.Builder
	for _, t := range alloc.Transactions {
		fmt.Fprintf(&rows, `
                <tr><td>%s</td><td class="pct">%s%%</td><td class="amount">%s</td></tr>`,
			html.EscapeString(t.CategoryName), FormatPercent(t.Percentage), FormatVND(t.AmountCents))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, #10b981, #059669); color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 40px 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 20px; }
        table { width: 100%%; border-collapse: collapse; }
        td, th { padding: 10px; border-bottom: 1px solid #eee; text-align: left; }
        .pct, .amount { text-align: right; }
        .total { font-weight: bold; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>🫙 六罐理财</h1>
        </div>
        <div class="content">
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p>您 %s 的收入 <strong>%s</strong> 已按以下比例分配到各个罐子：</p>
            <table>
                <tr><th>罐子</th><th class="pct">比例</th><th class="amount">金额</th></tr>%s
                <tr class="total"><td>合计</td><td></td><td class="amount">%s</td></tr>
            </table>
        </div>
        <div class="footer">
            <p>此邮件由系统自动发送，请勿回复</p>
            <p>© 六罐理财 - 您的个人预算助手</p>
        </div>
    </div>
</body>
</html>
`, html.EscapeString(name),
		FormatMonth(alloc.Entry.MonthYear),
		FormatVND(alloc.Entry.TotalIncomeCents),
		rows.String(),
		FormatVND(alloc.AllocatedTotal()))
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	return nil
}

// FormatVND 千分位格式，如 1.000.000 ₫
func FormatVND(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, ch := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(ch)
	}
	out := b.String() + " ₫"
	if neg {
		out = "-" + out
	}
	return out
}

// FormatPercent 最多两位小数，去掉末尾的 0
func FormatPercent(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
