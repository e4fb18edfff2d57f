package db

import (
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/config"
	"github.com/eshuuux/saptrangi-backend/internal/domain/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
// gormのログはzap経由で出す
func Connect(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if !cfg.IsProd() {
		level = gormlogger.Info
	}

	gl := gormlogger.New(
		zap.NewStdLog(log.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)

	return gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: gl})
}

// テーブル作成/更新
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.OTP{},
		&model.RefreshToken{},
		&model.Address{},
		&model.Product{},
		&model.Banner{},
		&model.Carousel{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.DeliveryPincode{},
		&model.Review{},
		&model.AuditLog{},
	)
}
