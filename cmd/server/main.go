package main

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"stitchkart/internal/config"
	"stitchkart/internal/database"
	"stitchkart/internal/handler"
	"stitchkart/internal/infrastructure/payment"
	"stitchkart/internal/logger"
	"stitchkart/internal/metrics"
	"stitchkart/internal/repo"
	"stitchkart/internal/service"
	"stitchkart/internal/worker"
)

func main() {
	log := logger.New()
	defer log.Sync()

	cfg := config.Load()

	db, err := database.NewPostgres(cfg.DSN())
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	orderRepo := repo.NewOrderRepo(db)
	paymentRepo := repo.NewPaymentRepo(db)
	productRepo := repo.NewProductRepo(db)

	gateway := payment.NewGateway(payment.Config{
		StoreID:       cfg.StoreID,
		StorePassword: cfg.StorePassword,
		PaymentAPI:    cfg.PaymentAPI,
		SuccessURL:    cfg.SuccessURL,
		FailURL:       cfg.FailURL,
		CancelURL:     cfg.CancelURL,
	})

	compensation := service.ToCompensationPolicy(cfg.CompensationMode)

	orderService := service.NewOrderService(db, orderRepo, paymentRepo, productRepo, m, log)
	paymentService := service.NewPaymentService(db, orderRepo, paymentRepo, gateway, compensation, m, log)

	if cfg.ReconcileInterval > 0 {
		sweeper := worker.NewReconciliationWorker(
			db, orderRepo, paymentRepo, compensation,
			cfg.ReconcileInterval, cfg.ReconcileCutoff, log,
		)
		go sweeper.Run(context.Background())
	}

	r := gin.Default()
	r.Use(cors.Default())

	handler.NewOrderHandler(orderService).RegisterRoutes(r)
	handler.NewPaymentHandler(paymentService).RegisterRoutes(r)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, database.Health(db))
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	log.Info("server listening", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
