package laser

import "strings"

// StatusEntry 是一条带标签的原始状态回复
type StatusEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// StatusReport 按查询顺序排列
type StatusReport []StatusEntry

// Lines 按 "标签 值" 的形式输出每一条
func (r StatusReport) Lines() []string {
	lines := make([]string, len(r))
	for i, e := range r {
		lines[i] = strings.TrimSpace(e.Label + " " + e.Value)
	}
	return lines
}

func (r StatusReport) String() string {
	return strings.Join(r.Lines(), "; ")
}
