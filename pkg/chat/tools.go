package chat

import "github.com/cloudwego/eino/schema"

// 工具分两层：search_web 由服务端执行；改稿类工具只转发给前端，
// 经用户确认后在客户端落地。
const (
	ToolSearchWeb   = "search_web"
	ToolAddSlide    = "add_slide"
	ToolUpdateSlide = "update_slide"
	ToolDeleteSlide = "delete_slide"
)

// isClientTool 判断工具是否属于客户端执行的改稿类工具。
func isClientTool(name string) bool {
	switch name {
	case ToolAddSlide, ToolUpdateSlide, ToolDeleteSlide:
		return true
	default:
		return false
	}
}

func slideParam() *schema.ParameterInfo {
	return &schema.ParameterInfo{
		Type: schema.Object,
		Desc: "幻灯片对象，含 title、content（要点字符串数组，最多4条）、charts（图表数组，最多4个，每个为 {type, data}，type 取 table/echarts/image）",
		SubParams: map[string]*schema.ParameterInfo{
			"title": {
				Type: schema.String,
				Desc: "幻灯片标题",
			},
			"content": {
				Type:     schema.Array,
				Desc:     "要点列表",
				ElemInfo: &schema.ParameterInfo{Type: schema.String},
			},
			"charts": {
				Type:     schema.Array,
				Desc:     "图表列表",
				ElemInfo: &schema.ParameterInfo{Type: schema.Object, Desc: "{type, data} 图表配置"},
			},
		},
	}
}

// toolMenu 返回提供给模型的工具清单；编辑模式下附加改稿类工具。
func toolMenu(editMode bool) []*schema.ToolInfo {
	tools := []*schema.ToolInfo{
		{
			Name: ToolSearchWeb,
			Desc: "搜索互联网获取最新的宏观经济数据、新闻或其他实时信息。当用户询问需要最新数据的问题时使用此工具。",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "搜索查询词，应该简洁明确",
					Required: true,
				},
			}),
		},
	}
	if !editMode {
		return tools
	}
	return append(tools,
		&schema.ToolInfo{
			Name: ToolAddSlide,
			Desc: "在指定位置插入一张新幻灯片。该操作由用户确认后在前端执行。",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"index": {
					Type: schema.Integer,
					Desc: "插入位置（从0开始），省略时追加到末尾",
				},
				"slide": func() *schema.ParameterInfo {
					p := slideParam()
					p.Required = true
					return p
				}(),
			}),
		},
		&schema.ToolInfo{
			Name: ToolUpdateSlide,
			Desc: "替换指定位置的幻灯片内容。该操作由用户确认后在前端执行。",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"index": {
					Type:     schema.Integer,
					Desc:     "目标幻灯片位置（从0开始）",
					Required: true,
				},
				"slide": func() *schema.ParameterInfo {
					p := slideParam()
					p.Required = true
					return p
				}(),
			}),
		},
		&schema.ToolInfo{
			Name: ToolDeleteSlide,
			Desc: "删除指定位置的幻灯片。该操作由用户确认后在前端执行。",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"index": {
					Type:     schema.Integer,
					Desc:     "目标幻灯片位置（从0开始）",
					Required: true,
				},
			}),
		},
	)
}
