package api

import (
	"log/slog"

	"github.com/shaiso/Apiary/internal/mq"
	"github.com/shaiso/Apiary/internal/repo"
	"github.com/shaiso/Apiary/internal/worker"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflowRepo *repo.WorkflowRepo
	runRepo      *repo.RunRepo
	resultRepo   *repo.ResultRepo
	scheduleRepo *repo.ScheduleRepo
	publisher    *mq.Publisher

	// inline — выполнение run прямо из API-процесса, когда publisher
	// недоступен (локальная разработка без RabbitMQ).
	inline *worker.Worker

	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	WorkflowRepo *repo.WorkflowRepo
	RunRepo      *repo.RunRepo
	ResultRepo   *repo.ResultRepo
	ScheduleRepo *repo.ScheduleRepo
	Publisher    *mq.Publisher
	Inline       *worker.Worker
	Logger       *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		workflowRepo: cfg.WorkflowRepo,
		runRepo:      cfg.RunRepo,
		resultRepo:   cfg.ResultRepo,
		scheduleRepo: cfg.ScheduleRepo,
		publisher:    cfg.Publisher,
		inline:       cfg.Inline,
		logger:       cfg.Logger,
	}
}
