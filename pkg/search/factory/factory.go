// Package factory 根据配置选择搜索提供方。
package factory

import (
	"fmt"

	"github.com/hongguan-lab/macro_deck/internal/conf"
	"github.com/hongguan-lab/macro_deck/pkg/search"
	"github.com/hongguan-lab/macro_deck/pkg/search/searxng"
	"github.com/hongguan-lab/macro_deck/pkg/search/tavily"
)

// NewSearcher 根据配置创建搜索实例
func NewSearcher(cfg *conf.Search) (search.Searcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("search provider not configured")
	}

	provider := cfg.Provider
	if provider == "" {
		// 默认回退逻辑：配置了 tavily key 则使用 tavily
		if cfg.Tavily != nil && cfg.Tavily.ApiKey != "" {
			provider = "tavily"
		} else {
			return nil, fmt.Errorf("search provider not configured")
		}
	}

	switch provider {
	case "tavily":
		if cfg.Tavily == nil || cfg.Tavily.ApiKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(cfg.Tavily.ApiKey), nil

	case "searxng":
		if cfg.Searxng == nil || cfg.Searxng.BaseUrl == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(cfg.Searxng.BaseUrl, int(cfg.Searxng.Timeout)), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", provider)
	}
}
