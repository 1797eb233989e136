package builder

import (
	"github.com/banbiao/banbiao/pkg/model"
)

// Snapshot 一次求解所需的全部输入数据
// 求解期间不可变，由数据加载层组装
type Snapshot struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Employees []*model.Employee `json:"employees"`
	Shifts    []*model.Shift    `json:"shifts"`
	Rules     []*model.Rule     `json:"rules"`

	// 既有分配（重新生成或优化时）
	Assignments []*model.Assignment `json:"assignments,omitempty"`
}

// Empty 快照是否没有可排班的内容
func (s *Snapshot) Empty() bool {
	return len(s.Employees) == 0 || len(s.Shifts) == 0
}
