// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"sort"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// NoDoubleBookingConstraint 禁止重复排班约束
// 同一员工的任意两次分配时间区间不得重叠
type NoDoubleBookingConstraint struct {
	*BaseConstraint
}

// NewNoDoubleBookingConstraint 创建禁止重复排班约束
func NewNoDoubleBookingConstraint() *NoDoubleBookingConstraint {
	return &NoDoubleBookingConstraint{
		BaseConstraint: NewBaseConstraint(
			"禁止重复排班",
			constraint.TypeNoDoubleBooking,
			constraint.CategoryHard,
			100,
		),
	}
}

// Evaluate 评估整个排班
func (c *NoDoubleBookingConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, emp := range ctx.Employees {
		assignments := countable(ctx.GetEmployeeAssignments(emp.ID))
		if len(assignments) < 2 {
			continue
		}

		// 按开始时间排序后只需检查相邻分配
		sorted := make([]*model.Assignment, len(assignments))
		copy(sorted, assignments)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].StartTime.Before(sorted[j].StartTime)
		})

		for i := 0; i < len(sorted)-1; i++ {
			if sorted[i].Overlaps(sorted[i+1]) {
				isValid = false
				penalty := c.Weight()
				totalPenalty += penalty

				violations = append(violations, constraint.ViolationDetail{
					ConstraintType: c.Type(),
					ConstraintName: c.Name(),
					EmployeeID:     emp.ID,
					ShiftID:        sorted[i+1].ShiftID,
					Date:           sorted[i+1].Date,
					Message: fmt.Sprintf(
						"员工 %s 在 %s 与 %s 的班次时间重叠",
						emp.Name, sorted[i].Date, sorted[i+1].Date,
					),
					Severity: "error",
					Penalty:  penalty,
				})
			}
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *NoDoubleBookingConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	for _, existing := range ctx.GetEmployeeAssignments(a.EmployeeID) {
		if existing.ID == a.ID || !existing.Countable() {
			continue
		}
		if a.Overlaps(existing) {
			return false, c.Weight()
		}
	}
	return true, 0
}

// countable 过滤出计入覆盖的分配
func countable(assignments []*model.Assignment) []*model.Assignment {
	result := make([]*model.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.Countable() {
			result = append(result, a)
		}
	}
	return result
}
