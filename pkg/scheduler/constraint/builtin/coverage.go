// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// CoverageConstraint 班次覆盖约束（软约束）
// 缺员按班次优先级加权惩罚，欠覆盖是可见的缺口而非不可行。
// 超员同样受罚，避免求解器堆人
type CoverageConstraint struct {
	*BaseConstraint
}

// NewCoverageConstraint 创建班次覆盖约束
func NewCoverageConstraint(weight int) *CoverageConstraint {
	return &CoverageConstraint{
		BaseConstraint: NewBaseConstraint(
			"班次覆盖",
			constraint.TypeCoverage,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个排班
func (c *CoverageConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, shift := range ctx.Shifts {
		staffed := ctx.CountStaffed(shift.ID)

		if staffed < shift.RequiredStaff {
			missing := shift.RequiredStaff - staffed
			penalty := c.Weight() * missing * shift.Priority
			totalPenalty += penalty

			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				ShiftID:        shift.ID,
				Date:           shift.Date,
				Message: fmt.Sprintf(
					"班次 %s（%s）缺员 %d 人，需要 %d 人",
					shift.Name, shift.Date, missing, shift.RequiredStaff,
				),
				Severity: "warning",
				Penalty:  penalty,
			})
		} else if staffed > shift.RequiredStaff {
			extra := staffed - shift.RequiredStaff
			penalty := c.Weight() * extra
			totalPenalty += penalty

			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				ShiftID:        shift.ID,
				Date:           shift.Date,
				Message: fmt.Sprintf(
					"班次 %s（%s）超员 %d 人",
					shift.Name, shift.Date, extra,
				),
				Severity: "warning",
				Penalty:  penalty,
			})
		}
	}

	return true, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
// 分配填补缺口时给予奖励，挤进已满班次时惩罚
func (c *CoverageConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	shift := ctx.GetShift(a.ShiftID)
	if shift == nil {
		return true, 0
	}

	staffed := ctx.CountStaffed(shift.ID)
	counted := false
	for _, existing := range ctx.GetShiftAssignments(shift.ID) {
		if existing.ID == a.ID {
			counted = existing.Countable()
			break
		}
	}
	if !counted {
		staffed++
	}

	if staffed <= shift.RequiredStaff {
		return true, -c.Weight() * shift.Priority
	}
	return true, c.Weight() * (staffed - shift.RequiredStaff)
}
