package supervisor

import (
	"strings"

	"github.com/BaSui01/coordflow/types"
)

// analysisKeywords 指向数据分析任务的关键词表
// 命中任意一个即路由到 data_analyst。
var analysisKeywords = []string{
	"analyze", "analysis", "statistics", "report", "trend",
	"pattern", "aggregate", "summary", "insights", "metrics",
	"performance", "calculate", "sum", "average", "count",
	"total", "sales", "revenue", "data", "chart", "graph",
}

// Classify 把自由文本查询映射到工作者类型。
// 确定性、无状态、全函数：任何输入都有结果，从不失败。
// 既是默认入口分类器，也是分解器的降级依据。
func Classify(query string) types.WorkerKind {
	lower := strings.ToLower(query)
	for _, kw := range analysisKeywords {
		if strings.Contains(lower, kw) {
			return types.WorkerAnalyst
		}
	}
	return types.WorkerGeneral
}
