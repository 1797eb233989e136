// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// CustomRuleConstraint 自定义规则约束（软约束）
// 引擎不理解自定义规则的语义，只按其声明的惩罚值
// 对命中员工的每次分配计罚，由上层系统解释载荷
type CustomRuleConstraint struct {
	*BaseConstraint
}

// NewCustomRuleConstraint 创建自定义规则约束
func NewCustomRuleConstraint(weight int) *CustomRuleConstraint {
	return &CustomRuleConstraint{
		BaseConstraint: NewBaseConstraint(
			"自定义规则",
			constraint.TypeCustomRule,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个排班
func (c *CustomRuleConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, a := range ctx.Assignments {
		if !a.Countable() {
			continue
		}
		_, penalty := c.EvaluateAssignment(ctx, a)
		if penalty == 0 {
			continue
		}
		totalPenalty += penalty

		violations = append(violations, constraint.ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			EmployeeID:     a.EmployeeID,
			ShiftID:        a.ShiftID,
			Date:           a.Date,
			Message:        fmt.Sprintf("%s 的分配命中自定义规则", a.Date),
			Severity:       "warning",
			Penalty:        penalty,
		})
	}

	return true, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *CustomRuleConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	penalty := 0
	for _, r := range ctx.RulesFor(model.RuleCustom, a.EmployeeID) {
		if params, ok := r.Params.(*model.CustomParams); ok {
			penalty += int(params.Penalty)
		}
	}
	return true, penalty
}
