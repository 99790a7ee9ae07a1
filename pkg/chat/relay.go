// Package chat 实现聊天中继：把浏览器聊天面板桥接到 OpenAI 兼容的补全
// 接口，支持流式输出与两层工具模型（服务端搜索 / 客户端改稿）。
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/gg/gson"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/hongguan-lab/macro_deck/internal/logger"
	deckmodel "github.com/hongguan-lab/macro_deck/pkg/model"
)

// 事件类型，经 SSE 原样转发给浏览器。
const (
	EventContent        = "content"
	EventToolCall       = "tool_call"
	EventToolResult     = "tool_result"
	EventClientToolCall = "client_tool_call"
	EventError          = "error"
)

// Event 单条流事件，JSON 编码后作为 SSE data 行发出。
type Event struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Message 调用方的会话历史条目
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 一次聊天请求。幻灯片上下文有两种给法：调用方直接传
// Context 文本，或传结构化的 Slides + CurrentIndex 由服务端序列化，
// 前者优先。
type Request struct {
	Messages     []Message        `json:"messages"`
	Context      string           `json:"context"`
	Slides       deckmodel.Report `json:"slides"`
	CurrentIndex int              `json:"currentIndex"`
	// EditMode 控制是否提供改稿类工具，缺省为 true；
	// 只读展示模式由上层关闭。
	EditMode *bool `json:"editMode"`
}

func (r *Request) slideContext() string {
	if r.Context != "" {
		return r.Context
	}
	return deckmodel.SlideContext(r.Slides, r.CurrentIndex)
}

func (r *Request) editMode() bool {
	return r.EditMode == nil || *r.EditMode
}

// Relay 聊天中继。每个请求至多发起两次串行补全调用：第一次带工具清单，
// 第二次仅在出现服务端工具调用后携带工具结果发起，且不再允许工具调用。
type Relay struct {
	chatModel model.ToolCallingChatModel
	webSearch *WebSearch
	limiter   *rate.Limiter
	now       func() time.Time
}

// NewRelay 创建聊天中继。
func NewRelay(chatModel model.ToolCallingChatModel, webSearch *WebSearch, limiter *rate.Limiter) *Relay {
	return &Relay{
		chatModel: chatModel,
		webSearch: webSearch,
		limiter:   limiter,
		now:       time.Now,
	}
}

// 流式工具调用的逐片段累积。参数 JSON 可能被拆进多个分片，必须按
// 提供方给出的 index 归并、按到达顺序拼接，否则拼出的 JSON 是坏的。
type toolCallAcc struct {
	id   string
	name string
	args strings.Builder
}

// Run 处理一次聊天请求，事件经 emit 即时发出。返回错误时调用方应发
// error 事件；[DONE] 由调用方在所有终止路径统一收尾。
func (r *Relay) Run(ctx context.Context, req *Request, emit func(Event) error) error {
	msgs := r.buildMessages(req)

	toolModel, err := r.chatModel.WithTools(toolMenu(req.editMode()))
	if err != nil {
		return fmt.Errorf("bind tools: %w", err)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	stream, err := toolModel.Stream(ctx, msgs)
	if err != nil {
		return fmt.Errorf("completion failed: %w", err)
	}

	fullContent, calls, err := pumpStream(stream, emit)
	if err != nil {
		return err
	}

	var clientCalls, serverCalls []*toolCallAcc
	for _, call := range calls {
		if call == nil || call.name == "" {
			continue
		}
		if isClientTool(call.name) {
			clientCalls = append(clientCalls, call)
		} else {
			serverCalls = append(serverCalls, call)
		}
	}
	if len(calls) > 0 {
		logger.Log.Debugf("工具调用: client=%d server=%d %s",
			len(clientCalls), len(serverCalls), gson.ToString(summarize(calls)))
	}

	// 同一轮同时出现两类调用时先执行服务端搜索并流式返回二次补全，
	// 再把改稿类调用转发给前端。
	if len(serverCalls) > 0 {
		if err := r.runServerTools(ctx, msgs, fullContent, serverCalls, emit); err != nil {
			return err
		}
	}
	for _, call := range clientCalls {
		ev := Event{Type: EventClientToolCall, Tool: call.name, Arguments: call.args.String()}
		if err := emit(ev); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relay) runServerTools(ctx context.Context, msgs []*schema.Message, fullContent string, serverCalls []*toolCallAcc, emit func(Event) error) error {
	if err := emit(Event{Type: EventToolCall, Tool: serverCalls[0].name}); err != nil {
		return err
	}

	// 二次调用的助手消息只携带已产出结果的服务端调用，
	// 保证每个 tool_call 都有配对的工具结果消息。
	assistantCalls := make([]schema.ToolCall, 0, len(serverCalls))
	toolMsgs := make([]*schema.Message, 0, len(serverCalls))
	for _, call := range serverCalls {
		assistantCalls = append(assistantCalls, schema.ToolCall{
			ID:   call.id,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      call.name,
				Arguments: call.args.String(),
			},
		})
		toolMsgs = append(toolMsgs, schema.ToolMessage(r.executeTool(ctx, call), call.id))
	}

	if err := emit(Event{Type: EventToolResult}); err != nil {
		return err
	}

	second := make([]*schema.Message, 0, len(msgs)+1+len(toolMsgs))
	second = append(second, msgs...)
	second = append(second, schema.AssistantMessage(fullContent, assistantCalls))
	second = append(second, toolMsgs...)

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	// 二次调用不绑定工具，不再允许继续发起工具调用
	stream, err := r.chatModel.Stream(ctx, second)
	if err != nil {
		return fmt.Errorf("second completion failed: %w", err)
	}
	_, _, err = pumpStream(stream, emit)
	return err
}

// executeTool 执行单个服务端工具调用；参数解析失败同样降级为结果文本。
func (r *Relay) executeTool(ctx context.Context, call *toolCallAcc) string {
	if call.name != ToolSearchWeb {
		return "工具调用失败"
	}
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.args.String()), &args); err != nil {
		logger.Log.Warnf("工具参数解析失败 [%s]: %v", call.name, err)
		return "工具调用失败"
	}
	return r.webSearch.Execute(ctx, args.Query)
}

func (r *Relay) buildMessages(req *Request) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(req.Messages)+1)
	msgs = append(msgs, schema.SystemMessage(r.systemPrompt(req.slideContext(), req.editMode())))
	for _, m := range req.Messages {
		if m.Role == "assistant" {
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		} else {
			msgs = append(msgs, schema.UserMessage(m.Content))
		}
	}
	return msgs
}

var weekdayZh = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

func (r *Relay) systemPrompt(context string, editMode bool) string {
	now := r.now()
	if loc, err := time.LoadLocation("Asia/Shanghai"); err == nil {
		now = now.In(loc)
	}
	timeStr := fmt.Sprintf("%d年%d月%d日 %s %02d:%02d",
		now.Year(), int(now.Month()), now.Day(), weekdayZh[now.Weekday()], now.Hour(), now.Minute())

	editNote := ""
	if editMode {
		editNote = "\n5. 使用 add_slide / update_slide / delete_slide 工具建议修改幻灯片（修改需用户确认后生效）"
	}

	return fmt.Sprintf(`你是一位专业的宏观经济分析专家。你的任务是帮助用户理解和分析宏观经济报告幻灯片的内容，并回答相关问题。

## 当前时间
%s

## 幻灯片内容
以下是用户当前正在查看的幻灯片及其上下文：

%s

## 你的能力
1. 基于幻灯片内容回答用户问题
2. 提供宏观经济分析和解读
3. 使用 search_web 工具搜索最新的宏观经济数据和新闻
4. 帮助用户理解经济指标和趋势%s

## 回答要求
- 使用中文回答
- 回答应简洁专业
- 如需搜索最新数据，使用 search_web 工具
- 引用幻灯片内容时，注明是来自哪张幻灯片
- 使用 Markdown 格式化回答`, timeStr, context, editNote)
}

// pumpStream 消费一次补全流：内容增量即时转发，工具调用分片按 index
// 累积。流结束后返回完整内容与累积的调用列表。
func pumpStream(stream *schema.StreamReader[*schema.Message], emit func(Event) error) (string, []*toolCallAcc, error) {
	defer stream.Close()

	var content strings.Builder
	var calls []*toolCallAcc

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("stream recv: %w", err)
		}

		if chunk.Content != "" {
			content.WriteString(chunk.Content)
			if err := emit(Event{Type: EventContent, Content: chunk.Content}); err != nil {
				return "", nil, err
			}
		}

		for _, tc := range chunk.ToolCalls {
			idx := len(calls)
			if tc.Index != nil {
				idx = *tc.Index
			}
			for len(calls) <= idx {
				calls = append(calls, nil)
			}
			if calls[idx] == nil {
				calls[idx] = &toolCallAcc{}
			}
			acc := calls[idx]
			if tc.ID != "" {
				acc.id = tc.ID
			}
			if tc.Function.Name != "" {
				acc.name = tc.Function.Name
			}
			acc.args.WriteString(tc.Function.Arguments)
		}
	}

	return content.String(), calls, nil
}

func summarize(calls []*toolCallAcc) []map[string]string {
	out := make([]map[string]string, 0, len(calls))
	for _, c := range calls {
		if c == nil {
			continue
		}
		out = append(out, map[string]string{"id": c.id, "name": c.name, "arguments": c.args.String()})
	}
	return out
}
