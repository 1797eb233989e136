package optimizer

import (
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// 单个硬约束违反的评分成本，保证任何软惩罚都无法抵消
const hardViolationCost = 10000.0

// Evaluator 约束评估器接口
type Evaluator interface {
	Evaluate(assignments []*model.Assignment) (float64, []string)
}

// ManagerEvaluator 基于约束管理器的评估器
// 每次评估构造独立上下文，可安全并发调用
type ManagerEvaluator struct {
	problem *builder.Problem
}

// NewManagerEvaluator 创建约束管理器评估器
func NewManagerEvaluator(problem *builder.Problem) *ManagerEvaluator {
	return &ManagerEvaluator{problem: problem}
}

// Evaluate 评估一组分配，返回得分（越低越好）与硬约束违反
func (e *ManagerEvaluator) Evaluate(assignments []*model.Assignment) (float64, []string) {
	base := e.problem.Context

	ctx := constraint.NewContext(base.ScheduleID, base.StartDate, base.EndDate)
	ctx.Settings = base.Settings
	ctx.SetEmployees(base.Employees)
	ctx.SetShifts(base.Shifts)
	ctx.SetRules(base.Rules)

	full := make([]*model.Assignment, 0, len(e.problem.Pinned)+len(assignments))
	full = append(full, e.problem.Pinned...)
	full = append(full, assignments...)
	ctx.SetAssignments(full)

	result := e.problem.Manager.Evaluate(ctx)

	violations := make([]string, 0, len(result.HardViolations))
	for _, v := range result.HardViolations {
		violations = append(violations, v.Message)
	}

	score := float64(result.TotalPenalty) + float64(len(result.HardViolations))*hardViolationCost
	return score, violations
}
