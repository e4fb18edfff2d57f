package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshuuux/saptrangi-backend/internal/config"
	"github.com/eshuuux/saptrangi-backend/internal/handler"
	"github.com/eshuuux/saptrangi-backend/internal/infra/db"
	"github.com/eshuuux/saptrangi-backend/internal/infra/events"
	"github.com/eshuuux/saptrangi-backend/internal/infra/gateway"
	"github.com/eshuuux/saptrangi-backend/internal/infra/logger"
	infraRepo "github.com/eshuuux/saptrangi-backend/internal/infra/repository"
	"github.com/eshuuux/saptrangi-backend/internal/infra/sms"
	"github.com/eshuuux/saptrangi-backend/internal/infra/token"
	"github.com/eshuuux/saptrangi-backend/internal/server"
	"github.com/eshuuux/saptrangi-backend/internal/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type closablePublisher interface {
	usecase.EventPublisher
	Close() error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// .envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	//DB接続
	gormDB, err := db.Connect(cfg, log)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	//Repository（GORM実装）
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	otpRepo := infraRepo.NewOTPGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	bannerRepo := infraRepo.NewBannerGormRepository(gormDB)
	carouselRepo := infraRepo.NewCarouselGormRepository(gormDB)
	cartRepo := infraRepo.NewCartItemGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	paymentRepo := infraRepo.NewPaymentGormRepository(gormDB)
	reviewRepo := infraRepo.NewReviewGormRepository(gormDB)
	pincodeRepo := infraRepo.NewDeliveryPincodeGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//外部サービス
	var publisher closablePublisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	}
	defer func() { _ = publisher.Close() }()

	var smsSender usecase.SMSSender = sms.NewLogSender(log)
	if cfg.SMSProvider == "msg91" {
		smsSender = sms.NewMsg91Sender(sms.Msg91Options{
			AuthKey:    cfg.MSG91AuthKey,
			FlowID:     cfg.MSG91FlowID,
			SenderID:   cfg.MSG91SenderID,
			BaseURL:    cfg.MSG91BaseURL,
			Timeout:    cfg.GatewayTimeout,
			MaxElapsed: cfg.GatewayMaxRetry,
		}, log)
	}

	razorpay := gateway.NewRazorpayClient(gateway.Options{
		KeyID:         cfg.RazorpayKeyID,
		KeySecret:     cfg.RazorpayKeySecret,
		WebhookSecret: cfg.RazorpayWebhookSecret,
		BaseURL:       cfg.RazorpayBaseURL,
		Timeout:       cfg.GatewayTimeout,
		MaxElapsed:    cfg.GatewayMaxRetry,
	}, log)

	issuer := token.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)

	//Usecase
	authUC := usecase.NewAuthUsecase(cfg, txm, userRepo, otpRepo, rtRepo, auditRepo, smsSender, issuer, log)
	profileUC := usecase.NewProfileUsecase(userRepo)
	addressUC := usecase.NewAddressUsecase(addressRepo)
	productUC := usecase.NewProductUsecase(productRepo, txm, log)
	catalogUC := usecase.NewCatalogUsecase(bannerRepo, carouselRepo)
	cartUC := usecase.NewCartUsecase(txm, cartRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(txm, addressRepo, productRepo, publisher, log)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, publisher, log)
	paymentUC := usecase.NewPaymentUsecase(txm, addressRepo, productRepo, orderRepo, paymentRepo, razorpay, publisher,
		usecase.PaymentOptions{
			Currency:   cfg.PaymentCurrency,
			SuccessURL: cfg.PaymentSuccessURL,
			FailureURL: cfg.PaymentFailureURL,
		}, log)
	deliveryUC := usecase.NewDeliveryUsecase(pincodeRepo, log)
	reviewUC := usecase.NewReviewUsecase(txm, reviewRepo, productRepo, log)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)

	//Handler
	e := server.New(cfg, log)
	server.RegisterRoutes(e, cfg, userRepo, server.Handlers{
		Auth:         handler.NewAuthHandler(authUC, cfg),
		Profile:      handler.NewProfileHandler(profileUC),
		Address:      handler.NewAddressHandler(addressUC),
		Product:      handler.NewProductHandler(productUC, catalogUC),
		AdminProduct: handler.NewAdminProductHandler(productUC, catalogUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		Payment:      handler.NewPaymentHandler(paymentUC, orderUC),
		Delivery:     handler.NewDeliveryHandler(deliveryUC),
		Review:       handler.NewReviewHandler(reviewUC),
		AdminUser:    handler.NewAdminUserHandler(authUC, auditUC),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//Server起動
	if err := server.Run(ctx, e, ":"+cfg.Port, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	log.Info("bye")
	return nil
}
