// Apiary API — HTTP-сервер для управления workflows, runs и schedules.
//
// Запуск run публикуется в RabbitMQ; если брокер недоступен,
// API выполняет run прямо в своём процессе (режим локальной разработки).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shaiso/Apiary/internal/api"
	"github.com/shaiso/Apiary/internal/mq"
	"github.com/shaiso/Apiary/internal/repo"
	"github.com/shaiso/Apiary/internal/telemetry"
	"github.com/shaiso/Apiary/internal/worker"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apiary_api_http_requests_total",
		Help: "Total HTTP requests handled by apiary_api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting apiary-api")

	// Подключаемся к базе данных
	pool, err := repo.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Создаём репозитории
	workflowRepo := repo.NewWorkflowRepo(pool)
	runRepo := repo.NewRunRepo(pool)
	resultRepo := repo.NewResultRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)

	// RabbitMQ: при недоступности API переходит в inline-режим
	var publisher *mq.Publisher
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, runs will execute inline", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		cancel()

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Inline worker: не запускается как демон, API вызывает ProcessRun
	// напрямую когда publisher недоступен.
	inline := worker.New(worker.Config{
		RunRepo:      runRepo,
		WorkflowRepo: workflowRepo,
		ResultRepo:   resultRepo,
		Publisher:    publisher,
		Logger:       logger,
	})

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		WorkflowRepo: workflowRepo,
		RunRepo:      runRepo,
		ResultRepo:   resultRepo,
		ScheduleRepo: scheduleRepo,
		Publisher:    publisher,
		Inline:       inline,
		Logger:       logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
