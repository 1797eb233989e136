// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// PreferredShiftConstraint 偏好班次约束（软约束）
// 命中 preferred_shift 规则或员工偏好的分配获得奖励，
// 命中员工避免声明的分配受到惩罚
type PreferredShiftConstraint struct {
	*BaseConstraint
}

// NewPreferredShiftConstraint 创建偏好班次约束
func NewPreferredShiftConstraint(weight int) *PreferredShiftConstraint {
	return &PreferredShiftConstraint{
		BaseConstraint: NewBaseConstraint(
			"偏好班次",
			constraint.TypePreferredShift,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个排班
func (c *PreferredShiftConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, a := range ctx.Assignments {
		if !a.Countable() {
			continue
		}
		_, penalty := c.EvaluateAssignment(ctx, a)
		totalPenalty += penalty

		if penalty > 0 {
			emp := ctx.GetEmployee(a.EmployeeID)
			name := a.EmployeeID.String()
			if emp != nil {
				name = emp.Name
			}
			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				EmployeeID:     a.EmployeeID,
				ShiftID:        a.ShiftID,
				Date:           a.Date,
				Message:        fmt.Sprintf("员工 %s 在 %s 的班次与其偏好不符", name, a.Date),
				Severity:       "warning",
				Penalty:        penalty,
			})
		}
	}

	return true, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *PreferredShiftConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp := ctx.GetEmployee(a.EmployeeID)
	shift := ctx.GetShift(a.ShiftID)
	if emp == nil || shift == nil {
		return true, 0
	}

	penalty := 0

	// 命中偏好规则给予奖励
	for _, r := range ctx.RulesFor(model.RulePreferredShift, emp.ID) {
		if r.Hard(ctx.Settings.HardOverrideThreshold) {
			continue
		}
		if params, ok := r.Params.(*model.ShiftSelectorParams); ok && params.Matches(shift) {
			penalty -= c.Weight() * r.Priority / 10
		}
	}

	// 员工自身偏好
	if prefs := emp.Preferences; prefs != nil {
		for _, t := range prefs.PreferredShiftTypes {
			if t == shift.Type {
				penalty -= c.Weight() / 4
			}
		}
		for _, t := range prefs.AvoidShiftTypes {
			if t == shift.Type {
				penalty += c.Weight() / 2
			}
		}
		if day, err := model.Weekday(a.Date); err == nil {
			for _, d := range prefs.AvoidDays {
				if d == day {
					penalty += c.Weight() / 2
				}
			}
			for _, d := range prefs.PreferredDays {
				if d == day {
					penalty -= c.Weight() / 4
				}
			}
		}
	}

	return true, penalty
}

// BlockedShiftConstraint 禁止班次约束
// 软约束形态惩罚命中的分配；优先级达到阈值的规则
// 由工厂注册为硬约束实例，直接禁止分配
type BlockedShiftConstraint struct {
	*BaseConstraint
	hard bool
}

// NewBlockedShiftConstraint 创建禁止班次约束
func NewBlockedShiftConstraint(weight int, hard bool) *BlockedShiftConstraint {
	typ := constraint.TypeBlockedShift
	cat := constraint.CategorySoft
	name := "禁止班次"
	if hard {
		typ = constraint.TypeBlockedShiftHard
		cat = constraint.CategoryHard
		name = "禁止班次（强制）"
	}
	return &BlockedShiftConstraint{
		BaseConstraint: NewBaseConstraint(name, typ, cat, weight),
		hard:           hard,
	}
}

// matches 分配是否命中本约束处理的禁止规则
func (c *BlockedShiftConstraint) matches(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	shift := ctx.GetShift(a.ShiftID)
	if shift == nil {
		return false, 0
	}

	for _, r := range ctx.RulesFor(model.RuleBlockedShift, a.EmployeeID) {
		if r.Hard(ctx.Settings.HardOverrideThreshold) != c.hard {
			continue
		}
		if params, ok := r.Params.(*model.ShiftSelectorParams); ok && params.Matches(shift) {
			return true, r.Priority
		}
	}
	return false, 0
}

// Evaluate 评估整个排班
func (c *BlockedShiftConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, a := range ctx.Assignments {
		if !a.Countable() {
			continue
		}
		hit, priority := c.matches(ctx, a)
		if !hit {
			continue
		}

		penalty := c.Weight() * priority / 10
		if penalty < 1 {
			penalty = 1
		}
		totalPenalty += penalty
		severity := "warning"
		if c.hard {
			isValid = false
			severity = "error"
		}

		emp := ctx.GetEmployee(a.EmployeeID)
		name := a.EmployeeID.String()
		if emp != nil {
			name = emp.Name
		}
		violations = append(violations, constraint.ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			EmployeeID:     a.EmployeeID,
			ShiftID:        a.ShiftID,
			Date:           a.Date,
			Message:        fmt.Sprintf("员工 %s 被规则禁止承接 %s 的班次", name, a.Date),
			Severity:       severity,
			Penalty:        penalty,
		})
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *BlockedShiftConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	hit, priority := c.matches(ctx, a)
	if !hit {
		return true, 0
	}
	penalty := c.Weight() * priority / 10
	if penalty < 1 {
		penalty = 1
	}
	return !c.hard, penalty
}
