package worker

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/pumbaabetiverse/sendswin-core/internal/worker/tasks"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
)

// Server 封装 Asynq Server (Worker)
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewServer 初始化 Worker Server。
// 结算和出金的 handler 由调用方注入，避免 worker 包反向依赖服务层。
func NewServer(addr string, password string, db int, concurrency int,
	settleHandler asynq.HandlerFunc, withdrawHandler asynq.HandlerFunc) *Server {

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
			DB:       db,
		},
		asynq.Config{
			// 并发数：同时处理多少个任务
			Concurrency: concurrency,
			// 队列优先级
			Queues: map[string]int{
				"critical": 6, // 结算/出金
				"default":  3,
				"low":      1,
			},
			// 错误日志处理
			Logger: logger.NewAsynqLogger(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSettlePayment, settleHandler)
	mux.HandleFunc(tasks.TypeWithdrawPayout, withdrawHandler)

	return &Server{
		server: srv,
		mux:    mux,
	}
}

// Run 启动 Worker (阻塞)
func (s *Server) Run() error {
	logger.Info("Worker Server starting...")
	return s.server.Run(s.mux)
}

// Start 非阻塞启动 (用于集成到 main.go)
func (s *Server) Start() {
	go func() {
		if err := s.server.Run(s.mux); err != nil {
			logger.Fatal("Worker Server failed", zap.Error(err))
		}
	}()
}

// Stop 停止 Worker
func (s *Server) Stop() {
	s.server.Stop()
	s.server.Shutdown()
}
