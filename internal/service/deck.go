// Package service 暴露 HTTP 边界：报告与季度的 JSON 接口、SSE 聊天流、
// PDF 导出以及打印视图。handler 只做编解码与状态码映射，业务在 biz 层。
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/hongguan-lab/macro_deck/internal/biz"
	"github.com/hongguan-lab/macro_deck/pkg/chat"
	"github.com/hongguan-lab/macro_deck/pkg/model"
	"github.com/hongguan-lab/macro_deck/pkg/printview"
)

// ServiceName 健康检查里上报的服务标识
const ServiceName = "macro-deck"

// ReportUseCase 报告用例接口
type ReportUseCase interface {
	ListQuarters(ctx context.Context) ([]*biz.Quarter, error)
	CreateQuarter(ctx context.Context, quarterID string) (*biz.Quarter, error)
	GetLatestReport(ctx context.Context, quarterID *int) (*biz.LatestReport, error)
	SaveReport(ctx context.Context, report json.RawMessage, quarterID *int) (int, error)
}

// PDFExporter 渲染整份报告为单个 PDF
type PDFExporter interface {
	Export(ctx context.Context, slides model.Report, baseURL string) ([]byte, error)
}

// ChatRelay 以回调方式吐出聊天流事件
type ChatRelay interface {
	Run(ctx context.Context, req *chat.Request, emit func(chat.Event) error) error
}

// Pinger 数据库探活
type Pinger interface {
	Ping(ctx context.Context) error
}

// DeckService 幻灯片服务的 HTTP 门面
type DeckService struct {
	uc       ReportUseCase
	exporter PDFExporter
	relay    ChatRelay
	pinger   Pinger
	// exportBaseURL 非空时覆盖按请求头推导的打印视图地址
	exportBaseURL string
	log           *log.Helper
}

// NewDeckService 创建服务门面。
func NewDeckService(uc ReportUseCase, exporter PDFExporter, relay ChatRelay, pinger Pinger, exportBaseURL string, logger log.Logger) *DeckService {
	return &DeckService{
		uc:            uc,
		exporter:      exporter,
		relay:         relay,
		pinger:        pinger,
		exportBaseURL: exportBaseURL,
		log:           log.NewHelper(logger),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeBizError 将 kratos 错误映射为对应状态码，其余按 500 处理。
func (s *DeckService) writeBizError(w http.ResponseWriter, err error) {
	se := errors.FromError(err)
	status := int(se.Code)
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		s.log.Errorf("internal error: %v", err)
		writeJSON(w, status, map[string]string{"error": "Internal server error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": se.Message})
}

// Quarters 处理 GET/POST /api/quarters。
func (s *DeckService) Quarters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		quarters, err := s.uc.ListQuarters(r.Context())
		if err != nil {
			s.writeBizError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"quarters": quarters})
	case http.MethodPost:
		var req struct {
			QuarterID string `json:"quarterId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
			return
		}
		quarter, err := s.uc.CreateQuarter(r.Context(), req.QuarterID)
		if err != nil {
			s.writeBizError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"quarter": quarter})
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	}
}

// Report 处理 GET/POST /api/report。
func (s *DeckService) Report(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getReport(w, r)
	case http.MethodPost:
		s.saveReport(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	}
}

func (s *DeckService) getReport(w http.ResponseWriter, r *http.Request) {
	var quarterID *int
	if raw := r.URL.Query().Get("quarterId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid quarterId"})
			return
		}
		quarterID = &id
	}

	latest, err := s.uc.GetLatestReport(r.Context(), quarterID)
	if err != nil {
		s.writeBizError(w, err)
		return
	}
	if latest.Record == nil {
		// 无报告不是错误，前端据此进入空白编辑态
		writeJSON(w, http.StatusOK, map[string]any{
			"report":    nil,
			"quarterId": latest.QuarterID,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         latest.Record.ID,
		"report":     latest.Record.Report,
		"quarterId":  latest.Record.QuarterID,
		"createTime": latest.Record.CreateTime.Format(time.RFC3339),
	})
}

func (s *DeckService) saveReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Report    json.RawMessage `json:"report"`
		QuarterID *int            `json:"quarterId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	id, err := s.uc.SaveReport(r.Context(), req.Report, req.QuarterID)
	if err != nil {
		s.writeBizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

// ExportPDF 处理 POST /api/export-pdf：逐页渲染打印视图并合并为单个文件。
func (s *DeckService) ExportPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	var req struct {
		Slides json.RawMessage `json:"slides"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid or empty slides"})
		return
	}
	slides, err := model.DecodeReport(req.Slides)
	if err != nil || len(slides) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid or empty slides"})
		return
	}

	baseURL := s.exportBaseURL
	if baseURL == "" {
		baseURL = requestBaseURL(r)
	}
	s.log.Infof("导出 PDF: %d 页, base=%s", len(slides), baseURL)

	pdf, err := s.exporter.Export(r.Context(), slides, baseURL)
	if err != nil {
		s.log.Errorf("PDF 导出失败: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate PDF"})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=report-%d.pdf", time.Now().UnixMilli()))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// requestBaseURL 从反向代理头推导自身可达地址，导出器的无头浏览器
// 要回连 /print 视图。
func requestBaseURL(r *http.Request) string {
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return proto + "://" + host
}

// Chat 处理 POST /api/chat，以 SSE 流式转发模型输出与工具事件。
func (s *DeckService) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	var req chat.Request
	// 空数组是合法历史，只拒绝缺失或非数组的 messages
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Messages == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid messages"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming unsupported"})
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(ev chat.Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := s.relay.Run(r.Context(), &req, emit); err != nil {
		s.log.Errorf("聊天流异常: %v", err)
		_ = emit(chat.Event{Type: "error", Message: "聊天服务暂时不可用，请稍后重试。"})
	}
	// 无论成败都发终止标记，客户端据此收流
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// Health 处理 GET /api/health。
func (s *DeckService) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   ServiceName,
		"database":  "connected",
	}
	if err := s.pinger.Ping(r.Context()); err != nil {
		resp["status"] = "unhealthy"
		resp["database"] = "disconnected"
		resp["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Print 处理 GET /print：服务端渲染供无头浏览器截印的单页视图。
func (s *DeckService) Print(w http.ResponseWriter, r *http.Request) {
	slidesParam := r.URL.Query().Get("slides")
	if slidesParam == "" {
		http.Error(w, "missing slides parameter", http.StatusBadRequest)
		return
	}
	slides, err := printview.DecodeSlidesParam(slidesParam)
	if err != nil {
		http.Error(w, "invalid slides parameter", http.StatusBadRequest)
		return
	}

	startIndex := 0
	if raw := r.URL.Query().Get("index"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			startIndex = n
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var buf strings.Builder
	if err := printview.Render(&buf, slides, startIndex); err != nil {
		s.log.Errorf("打印视图渲染失败: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(buf.String()))
}
