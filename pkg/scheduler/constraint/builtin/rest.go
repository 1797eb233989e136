// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// MinRestConstraint 班次间最小休息时间约束
// 休息时长取员工适用的 rest_period 规则中的最大值，
// 无规则时使用默认值
type MinRestConstraint struct {
	*BaseConstraint
	defaultHours float64
}

// NewMinRestConstraint 创建班次间最小休息约束
func NewMinRestConstraint(defaultHours float64) *MinRestConstraint {
	return &MinRestConstraint{
		BaseConstraint: NewBaseConstraint(
			"班次间最小休息",
			constraint.TypeMinRest,
			constraint.CategoryHard,
			100,
		),
		defaultHours: defaultHours,
	}
}

// restHoursFor 获取员工适用的最小休息时长
func (c *MinRestConstraint) restHoursFor(ctx *constraint.Context, empID uuid.UUID) float64 {
	hours := c.defaultHours
	for _, r := range ctx.RulesFor(model.RuleRestPeriod, empID) {
		if params, ok := r.Params.(*model.RestPeriodParams); ok && params.MinRestHours > hours {
			hours = params.MinRestHours
		}
	}
	return hours
}

// Evaluate 评估整个排班
func (c *MinRestConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, emp := range ctx.Employees {
		assignments := countable(ctx.GetEmployeeAssignments(emp.ID))
		if len(assignments) < 2 {
			continue
		}
		minHours := c.restHoursFor(ctx, emp.ID)

		// 按结束时间排序后检查相邻班次间隔
		sorted := make([]*model.Assignment, len(assignments))
		copy(sorted, assignments)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].EndTime.Before(sorted[j].EndTime)
		})

		for i := 0; i < len(sorted)-1; i++ {
			restHours := sorted[i+1].StartTime.Sub(sorted[i].EndTime).Hours()

			if restHours < minHours {
				isValid = false
				penalty := c.Weight() * int(minHours-restHours+0.5)
				if penalty < c.Weight() {
					penalty = c.Weight()
				}
				totalPenalty += penalty

				violations = append(violations, constraint.ViolationDetail{
					ConstraintType: c.Type(),
					ConstraintName: c.Name(),
					EmployeeID:     emp.ID,
					ShiftID:        sorted[i+1].ShiftID,
					Date:           sorted[i+1].Date,
					Message: fmt.Sprintf(
						"员工 %s 班次间隔仅 %.1f 小时，少于要求的 %.1f 小时",
						emp.Name, restHours, minHours,
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
func (c *MinRestConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	minHours := c.restHoursFor(ctx, a.EmployeeID)

	for _, existing := range ctx.GetEmployeeAssignments(a.EmployeeID) {
		if existing.ID == a.ID || !existing.Countable() {
			continue
		}

		var restHours float64
		if a.StartTime.After(existing.EndTime) || a.StartTime.Equal(existing.EndTime) {
			restHours = a.StartTime.Sub(existing.EndTime).Hours()
		} else if existing.StartTime.After(a.EndTime) || existing.StartTime.Equal(a.EndTime) {
			restHours = existing.StartTime.Sub(a.EndTime).Hours()
		} else {
			// 班次重叠
			return false, c.Weight() * int(minHours)
		}

		if restHours < minHours {
			penalty := c.Weight() * int(minHours-restHours+0.5)
			if penalty < c.Weight() {
				penalty = c.Weight()
			}
			return false, penalty
		}
	}

	return true, 0
}
