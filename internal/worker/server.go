package worker

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"settlement-core/internal/executor"
	"settlement-core/internal/worker/tasks"
	"settlement-core/pkg/logger"
)

// Server 封装 Asynq Server (归集 worker)
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewServer(addr string, password string, db int, concurrency int, registry *executor.Registry) *Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
			DB:       db,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6, // 手续费归集
				"default":  3,
				"low":      1,
			},
			Logger: logger.NewAsynqLogger(),
		},
	)

	mux := asynq.NewServeMux()
	feeHandler := &tasks.FeeTransferHandler{Registry: registry}
	mux.HandleFunc(tasks.TypeFeeTransfer, feeHandler.Handle)

	return &Server{server: srv, mux: mux}
}

// Run 阻塞启动
func (s *Server) Run() error {
	logger.Info("归集 worker 启动")
	return s.server.Run(s.mux)
}

// Start 非阻塞启动, 集成进单体进程用
func (s *Server) Start() {
	go func() {
		if err := s.server.Run(s.mux); err != nil {
			logger.Fatal("归集 worker 启动失败", zap.Error(err))
		}
	}()
}

func (s *Server) Stop() {
	s.server.Stop()
	s.server.Shutdown()
}
