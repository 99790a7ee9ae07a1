package server

import (
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/hongguan-lab/macro_deck/internal/conf"
	"github.com/hongguan-lab/macro_deck/internal/service"
)

// NewHTTPServer 挂载全部 HTTP 路由。聊天与导出是长耗时流式接口，
// 未配置超时则不设上限。
func NewHTTPServer(c *conf.Server, s *service.DeckService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout != "" {
		if d, err := time.ParseDuration(c.Http.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)

	srv.HandleFunc("/api/quarters", s.Quarters)
	srv.HandleFunc("/api/report", s.Report)
	srv.HandleFunc("/api/export-pdf", s.ExportPDF)
	srv.HandleFunc("/api/chat", s.Chat)
	srv.HandleFunc("/api/health", s.Health)
	// 打印视图供导出器的无头浏览器回连使用
	srv.HandleFunc("/print", s.Print)

	return srv
}
