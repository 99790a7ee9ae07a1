package model

import (
	"fmt"
	"strings"
)

// SlideContext 把整组幻灯片序列化为聊天系统提示里的上下文文本，
// 当前查看的幻灯片用【当前幻灯片】标记包裹。
func SlideContext(slides []Slide, currentIndex int) string {
	if len(slides) == 0 {
		return "当前没有幻灯片内容。"
	}

	var parts []string
	parts = append(parts, "# 当前幻灯片上下文\n")
	parts = append(parts, fmt.Sprintf("总共 %d 张幻灯片，当前查看第 %d 张。\n", len(slides), currentIndex+1))

	for i, slide := range slides {
		isCurrent := i == currentIndex
		if isCurrent {
			parts = append(parts, "\n---\n**【当前幻灯片】**")
		}
		parts = append(parts, slideText(slide, i))
		if isCurrent {
			parts = append(parts, "---\n")
		}
	}

	return strings.Join(parts, "\n")
}

func slideText(slide Slide, index int) string {
	var parts []string

	if slide.Title != "" {
		parts = append(parts, fmt.Sprintf("## 幻灯片 %d: %s", index+1, slide.Title))
	} else {
		parts = append(parts, fmt.Sprintf("## 幻灯片 %d", index+1))
	}

	if len(slide.Content) > 0 {
		parts = append(parts, "\n### 内容要点:")
		for _, item := range slide.Content {
			parts = append(parts, "- "+item)
		}
	}

	if len(slide.Charts) > 0 {
		parts = append(parts, "\n### 图表数据:")
		for i, chart := range slide.Charts {
			parts = append(parts, chartText(chart, i))
		}
	}

	return strings.Join(parts, "\n")
}

// chartText 按图表类型穷举生成摘要。
func chartText(chart Chart, index int) string {
	var parts []string

	switch chart.Type {
	case ChartTable:
		parts = append(parts, fmt.Sprintf("\n#### 表格 %d:", index+1))
		table := chart.Table
		columns := table.ColumnNames()
		parts = append(parts, "列: "+strings.Join(columns, ", "))
		if len(columns) > 0 {
			rowCount := table.RowCount()
			parts = append(parts, fmt.Sprintf("行数: %d", rowCount))
			if rowCount > 0 {
				parts = append(parts, "数据示例:")
				sampleRows := rowCount
				if sampleRows > 3 {
					sampleRows = 3
				}
				for row := 0; row < sampleRows; row++ {
					values := make([]string, len(columns))
					for c, col := range columns {
						if cell, ok := table.Cell(col, row); ok {
							values[c] = cell.Display()
						}
					}
					parts = append(parts, "  "+strings.Join(values, " | "))
				}
			}
		}

	case ChartECharts:
		parts = append(parts, fmt.Sprintf("\n#### ECharts 图表 %d:", index+1))
		if title, ok := asMapOk(chart.ECharts["title"]); ok {
			if text, ok := title["text"].(string); ok && text != "" {
				parts = append(parts, "标题: "+text)
			}
		}
		if series, ok := chart.ECharts["series"].([]any); ok {
			parts = append(parts, fmt.Sprintf("系列数量: %d", len(series)))
		}

	case ChartImage:
		parts = append(parts, fmt.Sprintf("\n#### 图片 %d", index+1))
	}

	return strings.Join(parts, "\n")
}
