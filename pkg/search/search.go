// Package search 定义通用的网络搜索接口，具体实现见 tavily 与 searxng 子包。
package search

import "context"

// Searcher 通用搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query       string
	Topic       string // "news" or "general"
	SearchDepth string // "basic" or "advanced"
	MaxResults  int
}

// Response 通用搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	Score         float64
	PublishedDate string
}
