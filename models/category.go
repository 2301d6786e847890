package models

// 六个罐子的固定名称
const (
	JarNecessity  = "Necessity"
	JarPlay       = "Play"
	JarEducation  = "Education"
	JarInvestment = "Investment"
	JarCharity    = "Charity"
	JarSavings    = "Savings"
)

// JarCategory 罐子类别（系统预置，只读）
type JarCategory struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"size:50;not null;uniqueIndex"`
	Description string `json:"description" gorm:"size:255"`
	Sort        int    `json:"sort" gorm:"default:0;index"`
}

func (JarCategory) TableName() string {
	return "jar_categories"
}

// DefaultJarCategories 初始化时写入的罐子类别，顺序即 ID 顺序
func DefaultJarCategories() []JarCategory {
	return []JarCategory{
		{Name: JarNecessity, Description: "Daily living expenses", Sort: 1},
		{Name: JarPlay, Description: "Fun and entertainment", Sort: 2},
		{Name: JarEducation, Description: "Learning and self improvement", Sort: 3},
		{Name: JarInvestment, Description: "Long-term investments", Sort: 4},
		{Name: JarCharity, Description: "Giving to others", Sort: 5},
		{Name: JarSavings, Description: "Savings for future goals", Sort: 6},
	}
}
