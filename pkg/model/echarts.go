package model

// EChartsOption 透传给前端 ECharts 的配置对象。除布局默认值外不做解释。
type EChartsOption map[string]any

// 打印视图固定按全屏字号渲染。
const (
	printFontSize      = 18
	printTitleFontSize = 22
)

// WithLayoutDefaults 合并打印布局默认值：全局/标题/图例字号、坐标轴标签
// 字号与压缩的网格边距。调用方已给出的字段一律保留。
func (o EChartsOption) WithLayoutDefaults() EChartsOption {
	merged := make(EChartsOption, len(o)+2)
	for k, v := range o {
		merged[k] = v
	}

	merged["textStyle"] = mergeDefaults(
		map[string]any{"fontSize": printFontSize},
		asMap(o["textStyle"]),
	)

	if title, ok := asMapOk(o["title"]); ok {
		title = copyMap(title)
		title["textStyle"] = mergeDefaults(
			map[string]any{"fontSize": printTitleFontSize},
			asMap(title["textStyle"]),
		)
		merged["title"] = title
	}

	if legend, ok := asMapOk(o["legend"]); ok {
		legend = copyMap(legend)
		legend["textStyle"] = mergeDefaults(
			map[string]any{"fontSize": printFontSize},
			asMap(legend["textStyle"]),
		)
		merged["legend"] = legend
	}

	merged["grid"] = mergeDefaults(
		map[string]any{"left": 8, "right": 8, "bottom": 42, "containLabel": true},
		asMap(o["grid"]),
	)

	for _, axis := range []string{"xAxis", "yAxis"} {
		switch v := o[axis].(type) {
		case map[string]any:
			merged[axis] = axisWithFontDefaults(v)
		case []any:
			axes := make([]any, len(v))
			for i, item := range v {
				if m, ok := item.(map[string]any); ok {
					axes[i] = axisWithFontDefaults(m)
				} else {
					axes[i] = item
				}
			}
			merged[axis] = axes
		}
	}

	return merged
}

func axisWithFontDefaults(axis map[string]any) map[string]any {
	out := copyMap(axis)
	out["axisLabel"] = mergeDefaults(
		map[string]any{"fontSize": printFontSize},
		asMap(axis["axisLabel"]),
	)
	out["nameTextStyle"] = mergeDefaults(
		map[string]any{"fontSize": printFontSize},
		asMap(axis["nameTextStyle"]),
	)
	return out
}

// mergeDefaults 返回 defaults 之上叠加 override 的新 map，override 优先。
func mergeDefaults(defaults, override map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(override))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asMapOk(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
