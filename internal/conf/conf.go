// Package conf 定义服务的启动配置结构，由 kratos config 从 yaml 扫描填充，
// 关键凭据可被环境变量覆盖。
package conf

import "os"

// Bootstrap 项目配置根结构
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	LLM    *LLM    `json:"llm"`
	Search *Search `json:"search"`
	Chat   *Chat   `json:"chat"`
	Export *Export `json:"export"`
	Log    *Log    `json:"log"`
}

type Server struct {
	Http *HTTP `json:"http"`
}

type HTTP struct {
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"`
}

type Data struct {
	Database *Database `json:"database"`
}

type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}

// LLM OpenAI 兼容接口配置
type LLM struct {
	BaseUrl string `json:"base_url"`
	ApiKey  string `json:"api_key"`
	Model   string `json:"model"`
}

type Search struct {
	Provider string   `json:"provider"`
	Tavily   *Tavily  `json:"tavily"`
	Searxng  *SearXNG `json:"searxng"`
	// FetchFullText 为真时对摘要过短的结果用 readability 抓取正文
	FetchFullText bool `json:"fetch_full_text"`
}

type Tavily struct {
	ApiKey string `json:"api_key"`
}

type SearXNG struct {
	BaseUrl string `json:"base_url"`
	Timeout int32  `json:"timeout"`
}

// Chat 聊天中继的上游限流配置
type Chat struct {
	Qps int32 `json:"qps"`
	Rpm int32 `json:"rpm"`
}

// Export PDF 导出流水线配置，零值取内置默认
type Export struct {
	BaseUrl           string `json:"base_url"` // 为空时按请求头推导
	NavTimeoutSec     int32  `json:"nav_timeout_sec"`
	ReadyTimeoutSec   int32  `json:"ready_timeout_sec"`
	SettleDelayMs     int32  `json:"settle_delay_ms"`
	DeviceScaleFactor int32  `json:"device_scale_factor"`
}

type Log struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// ApplyEnv 用环境变量覆盖配置文件中的外部服务凭据。
func (b *Bootstrap) ApplyEnv() {
	if b.LLM == nil {
		b.LLM = &LLM{}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		b.LLM.ApiKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		b.LLM.BaseUrl = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		b.LLM.Model = v
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		if b.Search == nil {
			b.Search = &Search{}
		}
		if b.Search.Tavily == nil {
			b.Search.Tavily = &Tavily{}
		}
		b.Search.Tavily.ApiKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		if b.Data == nil {
			b.Data = &Data{}
		}
		if b.Data.Database == nil {
			b.Data.Database = &Database{Driver: "postgres"}
		}
		b.Data.Database.Source = v
	}
}
