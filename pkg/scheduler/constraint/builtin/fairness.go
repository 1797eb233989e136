// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"math"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// WorkloadBalanceConstraint 工作量均衡约束（软约束）
// 惩罚员工工时偏离平均值的程度
type WorkloadBalanceConstraint struct {
	*BaseConstraint
}

// NewWorkloadBalanceConstraint 创建工作量均衡约束
func NewWorkloadBalanceConstraint(weight int) *WorkloadBalanceConstraint {
	return &WorkloadBalanceConstraint{
		BaseConstraint: NewBaseConstraint(
			"工作量均衡",
			constraint.TypeWorkloadBalance,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个排班
func (c *WorkloadBalanceConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail

	if len(ctx.Employees) == 0 {
		return true, 0, nil
	}

	hours := make(map[string]float64, len(ctx.Employees))
	var total float64
	for _, emp := range ctx.Employees {
		h := ctx.GetEmployeeHoursInRange(emp.ID, ctx.StartDate, ctx.EndDate)
		hours[emp.ID.String()] = h
		total += h
	}
	mean := total / float64(len(ctx.Employees))

	totalPenalty := 0
	for _, emp := range ctx.Employees {
		deviation := math.Abs(hours[emp.ID.String()] - mean)
		if deviation <= 4 { // 容忍半个班次的偏差
			continue
		}
		penalty := int(deviation * float64(c.Weight()) / 10)
		if penalty == 0 {
			continue
		}
		totalPenalty += penalty
		violations = append(violations, constraint.ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			EmployeeID:     emp.ID,
			Message: fmt.Sprintf(
				"员工 %s 工时 %.1f 小时，偏离平均值 %.1f 小时",
				emp.Name, hours[emp.ID.String()], deviation,
			),
			Severity: "warning",
			Penalty:  penalty,
		})
	}

	return true, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *WorkloadBalanceConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	if len(ctx.Employees) == 0 {
		return true, 0
	}

	var total float64
	for _, emp := range ctx.Employees {
		total += ctx.GetEmployeeHoursInRange(emp.ID, ctx.StartDate, ctx.EndDate)
	}
	mean := total / float64(len(ctx.Employees))

	current := ctx.GetEmployeeHoursInRange(a.EmployeeID, ctx.StartDate, ctx.EndDate)
	// 已经高于平均的员工再加班次，加剧失衡
	if current > mean {
		return true, int((current - mean) * float64(c.Weight()) / 10)
	}
	return true, 0
}

// UnsocialFairnessConstraint 非社交班次公平约束（软约束）
// 夜班、周末等标记为 unsocial 的班次应在员工间均匀分摊
type UnsocialFairnessConstraint struct {
	*BaseConstraint
}

// NewUnsocialFairnessConstraint 创建非社交班次公平约束
func NewUnsocialFairnessConstraint(weight int) *UnsocialFairnessConstraint {
	return &UnsocialFairnessConstraint{
		BaseConstraint: NewBaseConstraint(
			"非社交班次公平",
			constraint.TypeUnsocialFairness,
			constraint.CategorySoft,
			weight,
		),
	}
}

// unsocialCounts 统计每名员工承担的非社交班次数
func unsocialCounts(ctx *constraint.Context) map[string]int {
	counts := make(map[string]int, len(ctx.Employees))
	for _, a := range ctx.Assignments {
		if !a.Countable() {
			continue
		}
		if shift := ctx.GetShift(a.ShiftID); shift != nil && shift.Unsocial {
			counts[a.EmployeeID.String()]++
		}
	}
	return counts
}

// Evaluate 评估整个排班
func (c *UnsocialFairnessConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail

	if len(ctx.Employees) == 0 {
		return true, 0, nil
	}

	counts := unsocialCounts(ctx)
	var total int
	for _, n := range counts {
		total += n
	}
	mean := float64(total) / float64(len(ctx.Employees))

	totalPenalty := 0
	for _, emp := range ctx.Employees {
		excess := float64(counts[emp.ID.String()]) - mean
		if excess <= 1 {
			continue
		}
		penalty := int(excess * float64(c.Weight()))
		totalPenalty += penalty
		violations = append(violations, constraint.ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			EmployeeID:     emp.ID,
			Message: fmt.Sprintf(
				"员工 %s 承担 %d 个夜班/周末班，高于平均 %.1f 个",
				emp.Name, counts[emp.ID.String()], mean,
			),
			Severity: "warning",
			Penalty:  penalty,
		})
	}

	return true, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *UnsocialFairnessConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	shift := ctx.GetShift(a.ShiftID)
	if shift == nil || !shift.Unsocial || len(ctx.Employees) == 0 {
		return true, 0
	}

	counts := unsocialCounts(ctx)
	var total int
	for _, n := range counts {
		total += n
	}
	mean := float64(total) / float64(len(ctx.Employees))

	excess := float64(counts[a.EmployeeID.String()]) + 1 - mean
	if excess > 1 {
		return true, int(excess * float64(c.Weight()))
	}
	return true, 0
}

// MinHoursConstraint 周最小工时约束（软约束）
// min_hours 规则声明的员工未排满目标工时时惩罚缺口
type MinHoursConstraint struct {
	*BaseConstraint
}

// NewMinHoursConstraint 创建周最小工时约束
func NewMinHoursConstraint(weight int) *MinHoursConstraint {
	return &MinHoursConstraint{
		BaseConstraint: NewBaseConstraint(
			"周最小工时",
			constraint.TypeMinHoursPerWeek,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个排班
func (c *MinHoursConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, emp := range ctx.Employees {
		var target float64
		for _, r := range ctx.RulesFor(model.RuleMinHours, emp.ID) {
			if params, ok := r.Params.(*model.MinHoursParams); ok && params.HoursPerWeek > target {
				target = params.HoursPerWeek
			}
		}
		if target == 0 {
			continue
		}

		// 逐周检查缺口
		for weekStart := range weekStarts(ctx.StartDate, ctx.EndDate) {
			hours := ctx.GetEmployeeHoursInWeek(emp.ID, weekStart)
			if hours >= target {
				continue
			}
			gap := target - hours
			penalty := int(gap * float64(c.Weight()) / 4)
			if penalty == 0 {
				continue
			}
			totalPenalty += penalty
			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				EmployeeID:     emp.ID,
				Date:           weekStart,
				Message: fmt.Sprintf(
					"员工 %s 在 %s 起的一周工时 %.1f 小时，低于目标 %.1f 小时",
					emp.Name, weekStart, hours, target,
				),
				Severity: "warning",
				Penalty:  penalty,
			})
		}
	}

	return true, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
// 帮助欠时员工接近目标的分配给予奖励
func (c *MinHoursConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	var target float64
	for _, r := range ctx.RulesFor(model.RuleMinHours, a.EmployeeID) {
		if params, ok := r.Params.(*model.MinHoursParams); ok && params.HoursPerWeek > target {
			target = params.HoursPerWeek
		}
	}
	if target == 0 {
		return true, 0
	}

	hours := ctx.GetEmployeeHoursInWeek(a.EmployeeID, a.Date)
	if hours < target {
		return true, -c.Weight() / 2
	}
	return true, 0
}

// weekStarts 枚举范围内每个自然周的周一
func weekStarts(startDate, endDate string) map[string]struct{} {
	result := make(map[string]struct{})
	date := startDate
	for date != "" && date <= endDate {
		weekStart, _ := constraint.WeekBounds(date)
		result[weekStart] = struct{}{}
		date = model.NextDate(date)
	}
	return result
}
