package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"

	"github.com/hongguan-lab/macro_deck/internal/biz"
	"github.com/hongguan-lab/macro_deck/internal/conf"
	"github.com/hongguan-lab/macro_deck/internal/data"
	"github.com/hongguan-lab/macro_deck/internal/logger"
	"github.com/hongguan-lab/macro_deck/internal/server"
	"github.com/hongguan-lab/macro_deck/internal/service"
	"github.com/hongguan-lab/macro_deck/pkg/chat"
	"github.com/hongguan-lab/macro_deck/pkg/export"
	"github.com/hongguan-lab/macro_deck/pkg/search/factory"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 是服务的名称
	Name string = service.ServiceName
	// Version 是服务的版本号
	Version string
	// flagconf 是配置文件的路径命令行参数
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()
	klogger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}
	// 环境变量覆盖凭据，便于容器部署
	bc.ApplyEnv()

	logLevel, logFile := "info", ""
	if bc.Log != nil {
		logLevel, logFile = bc.Log.Level, bc.Log.File
	}
	if err := logger.Init(logLevel, logFile); err != nil {
		stdlog.Fatalf("无法初始化日志: %v", err)
	}

	app, cleanup, err := initApp(&bc, klogger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		panic(err)
	}
}

// initApp 手工组装依赖：data -> biz -> 引擎组件 -> service -> server。
func initApp(bc *conf.Bootstrap, klogger log.Logger) (*kratos.App, func(), error) {
	d, cleanup, err := data.NewData(bc.Data, klogger)
	if err != nil {
		return nil, nil, err
	}
	repo := data.NewReportRepo(d, klogger)
	uc := biz.NewReportUseCase(repo, klogger)

	chatModel, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		BaseURL: bc.LLM.BaseUrl,
		APIKey:  bc.LLM.ApiKey,
		Model:   bc.LLM.Model,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	searcher, err := factory.NewSearcher(bc.Search)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	webSearch := chat.NewWebSearch(searcher, bc.Search != nil && bc.Search.FetchFullText)

	// Limit 设置为 RPM/60，Burst 设置为 QPS
	rpm, qps := int32(60), int32(2)
	if bc.Chat != nil {
		if bc.Chat.Rpm > 0 {
			rpm = bc.Chat.Rpm
		}
		if bc.Chat.Qps > 0 {
			qps = bc.Chat.Qps
		}
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), int(qps))
	relay := chat.NewRelay(chatModel, webSearch, limiter)

	exporter := export.New(export.OptionsFromConf(bc.Export))
	exportBaseURL := ""
	if bc.Export != nil {
		exportBaseURL = bc.Export.BaseUrl
	}

	svc := service.NewDeckService(uc, exporter, relay, d, exportBaseURL, klogger)
	hs := server.NewHTTPServer(bc.Server, svc, klogger)

	app := kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(klogger),
		kratos.Server(hs),
	)
	return app, cleanup, nil
}
