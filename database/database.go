package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jars/config"
	"jars/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 支持的数据库驱动
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open 按配置打开数据库连接、设置连接池并完成迁移
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, NewGormConfig())
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 获取底层 *sql.DB 连接池配置
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	maxIdle, maxOpen := cfg.MaxIdleConns, cfg.MaxOpenConns
	if maxIdle <= 0 {
		maxIdle = 10
	}
	if maxOpen <= 0 {
		maxOpen = 100
	}
	if cfg.Driver == DriverSQLite {
		// sqlite 单写者
		maxOpen = 1
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Str("driver", cfg.Driver).Msg("数据库初始化成功")
	return db, nil
}

// Dialector 根据驱动构建 gorm 方言
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=UTC",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.Charset)
		return mysql.Open(dsn), nil
	case DriverPostgres:
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.Username, cfg.Password, cfg.DBName, cfg.Port, sslMode)
		return postgres.Open(dsn), nil
	case DriverSQLite, "":
		path := cfg.Path
		if path == "" {
			path = "jars.db"
		}
		if err := ensureDirForSQLite(path); err != nil {
			return nil, err
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}
}

// NewGormConfig 统一的 gorm 配置：UTC 时间、错误翻译、Warn 级别日志
func NewGormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(zerologWriter{}, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	}
}

// Migrate 自动迁移数据库表并写入预置罐子类别
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.JarCategory{},
		&models.UserJar{},
		&models.Transaction{},
		&models.MonthlyIncomeEntry{},
		&models.SavingTarget{},
	); err != nil {
		return fmt.Errorf("迁移数据库失败: %w", err)
	}

	// 初始化罐子类别（仅当表为空时）
	var catCount int64
	if err := db.Model(&models.JarCategory{}).Count(&catCount).Error; err != nil {
		return err
	}
	if catCount == 0 {
		cats := models.DefaultJarCategories()
		if err := db.Create(&cats).Error; err != nil {
			return fmt.Errorf("初始化罐子类别失败: %w", err)
		}
	}
	return nil
}

// zerologWriter 把 gorm 日志转到 zerolog
type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...interface{}) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}

// ensureDirForSQLite 为 sqlite 文件创建父目录
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建数据库目录 %q 失败: %w", dir, err)
	}
	return nil
}
