// Package export 实现 PDF 导出流水线：每张幻灯片单独经无头浏览器渲染
// 打印视图并截取为单页 PDF，再按输入顺序合并为一份文档。逐张串行渲染
// 换取失败归因清晰与峰值内存可控。
package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/hongguan-lab/macro_deck/internal/conf"
	"github.com/hongguan-lab/macro_deck/internal/logger"
	"github.com/hongguan-lab/macro_deck/pkg/model"
)

// 页面几何固定 1920×1080，Chrome 纸面尺寸按 96 CSS px/inch 换算。
const (
	pageWidthInch  = 1920.0 / 96.0
	pageHeightInch = 1080.0 / 96.0
)

const (
	defaultNavTimeout   = 60 * time.Second
	defaultReadyTimeout = 30 * time.Second
	defaultSettleDelay  = 500 * time.Millisecond
	defaultScaleFactor  = 2
)

// Options 导出流水线的超时与清晰度参数。
type Options struct {
	NavTimeout        time.Duration
	ReadyTimeout      time.Duration
	SettleDelay       time.Duration
	DeviceScaleFactor int
}

// OptionsFromConf 从配置取参数，零值落回内置默认。
func OptionsFromConf(c *conf.Export) Options {
	opts := Options{
		NavTimeout:        defaultNavTimeout,
		ReadyTimeout:      defaultReadyTimeout,
		SettleDelay:       defaultSettleDelay,
		DeviceScaleFactor: defaultScaleFactor,
	}
	if c == nil {
		return opts
	}
	if c.NavTimeoutSec > 0 {
		opts.NavTimeout = time.Duration(c.NavTimeoutSec) * time.Second
	}
	if c.ReadyTimeoutSec > 0 {
		opts.ReadyTimeout = time.Duration(c.ReadyTimeoutSec) * time.Second
	}
	if c.SettleDelayMs > 0 {
		opts.SettleDelay = time.Duration(c.SettleDelayMs) * time.Millisecond
	}
	if c.DeviceScaleFactor > 0 {
		opts.DeviceScaleFactor = int(c.DeviceScaleFactor)
	}
	return opts
}

// Exporter 按需为每次导出启动一个独立浏览器会话。
type Exporter struct {
	opts Options
}

// New 创建导出器。
func New(opts Options) *Exporter {
	return &Exporter{opts: opts}
}

// Export 把有序幻灯片列表导出为一份多页 PDF。任何一张渲染失败都使
// 整个导出失败，没有部分结果。浏览器会话在所有退出路径上保证关闭。
func (e *Exporter) Export(ctx context.Context, slides model.Report, baseURL string) ([]byte, error) {
	if len(slides) == 0 {
		return nil, fmt.Errorf("no slides to export")
	}

	// 无头服务器环境下关闭沙箱
	l := launcher.New().
		Headless(true).
		Set(flags.NoSandbox).
		Set("disable-setuid-sandbox").
		Set("disable-web-security").
		Set("allow-running-insecure-content")
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Log.Warnf("关闭浏览器失败: %v", err)
		}
		l.Cleanup()
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: float64(e.opts.DeviceScaleFactor), // 提升输出清晰度
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	pages := make([]io.ReadSeeker, 0, len(slides))
	for i, slide := range slides {
		data, err := e.renderSlide(page, slide, i, baseURL)
		if err != nil {
			return nil, fmt.Errorf("render slide %d: %w", i+1, err)
		}
		pages = append(pages, bytes.NewReader(data))
	}

	var merged bytes.Buffer
	if err := api.MergeRaw(pages, &merged, false, nil); err != nil {
		return nil, fmt.Errorf("merge pdf: %w", err)
	}
	logger.Log.Infof("PDF 导出完成: %d 页, %d 字节", len(slides), merged.Len())
	return merged.Bytes(), nil
}

// renderSlide 导航到单张幻灯片的打印视图，等待就绪后截取为单页 PDF。
func (e *Exporter) renderSlide(page *rod.Page, slide model.Slide, index int, baseURL string) ([]byte, error) {
	target, err := printURL(baseURL, slide, index)
	if err != nil {
		return nil, err
	}

	wait := page.Timeout(e.opts.NavTimeout).WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	if err := page.Timeout(e.opts.NavTimeout).Navigate(target); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	wait()

	// 打印视图在「解码 ∧ 字体就绪 ∧ 静置延迟结束」后置位就绪标志
	if err := page.Timeout(e.opts.ReadyTimeout).Wait(rod.Eval(`() => window.__PRINT_READY__ === true`)); err != nil {
		return nil, fmt.Errorf("wait print ready: %w", err)
	}
	// 吸收图表动画尾部的迟到回流
	time.Sleep(e.opts.SettleDelay)

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      f64(pageWidthInch),
		PaperHeight:     f64(pageHeightInch),
		MarginTop:       f64(0),
		MarginBottom:    f64(0),
		MarginLeft:      f64(0),
		MarginRight:     f64(0),
		PrintBackground: true,
		PageRanges:      "1",
	})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return data, nil
}

// printURL 把单张幻灯片编码进打印视图 URL：JSON（单元素数组）→ base64
// → 查询参数，并携带页码偏移。
func printURL(baseURL string, slide model.Slide, index int) (string, error) {
	payload, err := json.Marshal([]model.Slide{slide})
	if err != nil {
		return "", fmt.Errorf("encode slide: %w", err)
	}
	param := base64.StdEncoding.EncodeToString(payload)
	return fmt.Sprintf("%s/print?slides=%s&index=%d",
		strings.TrimRight(baseURL, "/"), url.QueryEscape(param), index), nil
}

func f64(v float64) *float64 {
	return &v
}
