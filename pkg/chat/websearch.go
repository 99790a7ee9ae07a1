package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/hongguan-lab/macro_deck/internal/logger"
	"github.com/hongguan-lab/macro_deck/pkg/search"
)

const (
	searchMaxResults = 5
	searchDepth      = "basic"

	// 摘要短于该长度时尝试抓取原文
	shortSnippetLen = 120
	// 抓取正文截断长度，防止撑爆上下文
	fullTextLimit = 800

	fetchTimeout = 10 * time.Second
)

// 搜索失败不应阻断模型回复，统一降级为结果文本里的哨兵串。
const (
	msgNoResults    = "没有找到相关结果。"
	msgSearchFailed = "搜索失败，请稍后重试。"
)

// WebSearch 封装 search_web 工具的服务端执行：调用搜索提供方并把结果
// 格式化为编号列表，供第二次补全调用作为工具结果输入。
type WebSearch struct {
	searcher      search.Searcher
	fetchFullText bool
}

// NewWebSearch 创建工具执行器。fetchFullText 为真时对摘要过短的结果
// 用 readability 抓取正文补充。
func NewWebSearch(searcher search.Searcher, fetchFullText bool) *WebSearch {
	return &WebSearch{searcher: searcher, fetchFullText: fetchFullText}
}

// Execute 执行一次搜索。任何失败都转成哨兵串返回，绝不向上抛错。
func (w *WebSearch) Execute(ctx context.Context, query string) string {
	resp, err := w.searcher.Search(ctx, &search.Request{
		Query:       query,
		SearchDepth: searchDepth,
		MaxResults:  searchMaxResults,
	})
	if err != nil {
		logger.Log.Errorf("搜索失败 [%s]: %v", query, err)
		return msgSearchFailed
	}
	if len(resp.Results) == 0 {
		return msgNoResults
	}

	blocks := make([]string, 0, len(resp.Results))
	for i, r := range resp.Results {
		content := r.Content
		if w.fetchFullText && len(content) < shortSnippetLen {
			if fetched, err := fetchAndCleanContent(r.URL); err == nil && len(fetched) > len(content) {
				content = fetched
			}
		}
		content = truncateRunes(content, fullTextLimit)
		blocks = append(blocks, fmt.Sprintf("%d. %s\n   %s\n   来源: %s", i+1, r.Title, content, r.URL))
	}

	return "搜索结果:\n\n" + strings.Join(blocks, "\n\n")
}

// truncateRunes 在不超过 limit 字节的前提下按字符边界截断，
// 避免把多字节字符切成半截。
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// fetchAndCleanContent 抓取 URL 并提取核心文本
func fetchAndCleanContent(url string) (string, error) {
	article, err := readability.FromURL(url, fetchTimeout)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
