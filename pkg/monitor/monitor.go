package monitor

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var initOnce sync.Once

// Init 初始化并注册监控指标。幂等: 重复注册 prometheus 指标会 panic，
// server 和 cli 的启动路径都要调，只有第一次生效。
func Init() {
	initOnce.Do(InitBusinessMetrics)
}

// Serve 在独立端口暴露 /metrics (阻塞)
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
