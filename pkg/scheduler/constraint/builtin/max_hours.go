// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// MaxHoursPerWeekConstraint 周最大工时约束
// 上限取员工自身设置、适用的 max_hours 规则与全局默认中的最小值
type MaxHoursPerWeekConstraint struct {
	*BaseConstraint
	defaultHours float64
}

// NewMaxHoursPerWeekConstraint 创建周最大工时约束
func NewMaxHoursPerWeekConstraint(defaultHours float64) *MaxHoursPerWeekConstraint {
	return &MaxHoursPerWeekConstraint{
		BaseConstraint: NewBaseConstraint(
			"周最大工时",
			constraint.TypeMaxHoursPerWeek,
			constraint.CategoryHard,
			100,
		),
		defaultHours: defaultHours,
	}
}

// capFor 获取员工适用的周工时上限
func (c *MaxHoursPerWeekConstraint) capFor(ctx *constraint.Context, empID uuid.UUID) float64 {
	cap := c.defaultHours
	if emp := ctx.GetEmployee(empID); emp != nil && emp.MaxHoursPerWeek > 0 {
		cap = float64(emp.MaxHoursPerWeek)
	}
	for _, r := range ctx.RulesFor(model.RuleMaxHours, empID) {
		if params, ok := r.Params.(*model.MaxHoursParams); ok && params.HoursPerWeek < cap {
			cap = params.HoursPerWeek
		}
	}
	return cap
}

// Evaluate 评估整个排班
func (c *MaxHoursPerWeekConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, emp := range ctx.Employees {
		assignments := countable(ctx.GetEmployeeAssignments(emp.ID))
		if len(assignments) == 0 {
			continue
		}
		cap := c.capFor(ctx, emp.ID)

		// 每个自然周只报告一次
		weeks := make(map[string]float64)
		for _, a := range assignments {
			weekStart, _ := constraint.WeekBounds(a.Date)
			weeks[weekStart] += a.WorkingHours()
		}

		for weekStart, hours := range weeks {
			if hours > cap {
				isValid = false
				penalty := c.Weight() * int(hours-cap+0.5)
				if penalty < c.Weight() {
					penalty = c.Weight()
				}
				totalPenalty += penalty

				violations = append(violations, constraint.ViolationDetail{
					ConstraintType: c.Type(),
					ConstraintName: c.Name(),
					EmployeeID:     emp.ID,
					Date:           weekStart,
					Message: fmt.Sprintf(
						"员工 %s 在 %s 起的一周工时 %.1f 小时，超过上限 %.1f 小时",
						emp.Name, weekStart, hours, cap,
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
func (c *MaxHoursPerWeekConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	cap := c.capFor(ctx, a.EmployeeID)

	// 已计入的周工时加上本次分配
	hours := ctx.GetEmployeeHoursInWeek(a.EmployeeID, a.Date)
	already := false
	for _, existing := range ctx.GetEmployeeAssignments(a.EmployeeID) {
		if existing.ID == a.ID {
			already = true
			break
		}
	}
	if !already {
		hours += a.WorkingHours()
	}

	if hours > cap {
		penalty := c.Weight() * int(hours-cap+0.5)
		if penalty < c.Weight() {
			penalty = c.Weight()
		}
		return false, penalty
	}

	return true, 0
}
