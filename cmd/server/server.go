package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/perf-monitor/pkg/config"
	"github.com/perf-monitor/pkg/monitor"
	"github.com/perf-monitor/pkg/registers"
)

const defaultShutdownTimeout = 5 * time.Second

// StatusProvider 状态视图查询
type StatusProvider interface {
	Status() monitor.Status
}

// Server 本地 HTTP 服务：指标暴露 + 给外部 UI/脚本使用的只读查询
type Server struct {
	cfg      config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
	gatherer prometheus.Gatherer
	source   registers.SnapshotSource
	status   StatusProvider
	mux      *customMux
}

// statusWriter 包装ResponseWriter，捕获状态码
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader 捕获状态码
func (w *statusWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// customMux 自定义Mux，兼容原生用法并记录路由
type customMux struct {
	http.ServeMux
	routes []string
	mu     sync.Mutex
}

// Handle 注册路由时记录路径，重复注册不重复记录
func (m *customMux) Handle(pattern string, handler http.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, route := range m.routes {
		if route == pattern {
			m.ServeMux.Handle(pattern, handler)
			return
		}
	}
	m.routes = append(m.routes, pattern)
	m.ServeMux.Handle(pattern, handler)
}

// HandleFunc 重写HandleFunc
func (m *customMux) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	m.Handle(pattern, http.HandlerFunc(handler))
}

// Routes 已注册的路由（副本）
func (m *customMux) Routes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.routes...)
}

// NewHTTPServer 创建HTTP服务实例
func NewHTTPServer(cfg config.ServerConfig, logger *zap.Logger, gatherer prometheus.Gatherer, source registers.SnapshotSource, status StatusProvider) *Server {
	srv := &Server{
		cfg:      cfg,
		logger:   logger,
		gatherer: gatherer,
		source:   source,
		status:   status,
		mux:      &customMux{},
	}
	srv.registerEndpoints()

	srv.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return srv
}

// Handler 带访问日志的根 handler，测试中可直接挂到 httptest
func (s *Server) Handler() http.Handler {
	return s.logMiddleware(s.mux)
}

// logMiddleware 统一日志记录
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		s.logger.Debug(
			"HTTP request",
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// registerEndpoints 注册核心路由
func (s *Server) registerEndpoints() {
	s.mux.HandleFunc("/", s.handleIndex)

	s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(s.logger),
	}))

	s.mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// 按需采集一份新快照，不写入缓冲区
	s.mux.HandleFunc("/api/snapshot", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		snap, err := s.source.Capture(r.Context())
		if err != nil {
			s.logger.Warn("on-demand capture failed", zap.Error(err))
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, snap)
	})

	s.mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.writeJSON(w, http.StatusOK, s.status.Status())
	})
}

// handleIndex 根路径显示 HTML 页面，包含可点击的链接
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	html := `<!DOCTYPE html>
<html lang="zh-CN">
<head>
	<meta charset="UTF-8">
	<title>Perf Monitor</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 40px; }
		h1 { color: #333; }
		a { display: block; margin: 8px 0; font-size: 18px; }
	</style>
</head>
<body>
	<h1>Perf Monitor Agent</h1>
	<p>Service is running.</p>
	<h2>Available Endpoints:</h2>
	<a href="/health">/health - 健康检查</a>
	<a href="/metrics">/metrics - Prometheus 指标暴露</a>
	<a href="/api/snapshot">/api/snapshot - 当前主机快照</a>
	<a href="/api/status">/api/status - 缓冲区与发送状态</a>
</body>
</html>
`
	_, _ = w.Write([]byte(html))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
		http.Error(w, "encode response failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Start 启动HTTP服务（非阻塞），监听失败立即返回错误
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.logger.Info(
		"starting HTTP server",
		zap.String("listen_addr", ln.Addr().String()),
		zap.Strings("handle_funcs", s.mux.Routes()),
	)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown 优雅关闭HTTP服务
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded")
			return nil
		}
		s.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP server shutdown successfully")
	return nil
}
