// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// 软约束默认权重
const (
	WeightCoverage   = 80
	WeightPreference = 20
	WeightBlocked    = 40
	WeightBalance    = 30
	WeightUnsocial   = 25
	WeightMinHours   = 30
	WeightCustom     = 10
)

// RegisterAll 向管理器注册全部内置约束
// 硬约束恒定注册；规则驱动的约束在无对应规则时
// 评估为零惩罚，注册无副作用
func RegisterAll(m *constraint.Manager, settings constraint.Settings) {
	// 硬约束
	m.Register(NewNoDoubleBookingConstraint())
	m.Register(NewAvailabilityConstraint())
	m.Register(NewMinRestConstraint(settings.DefaultMinRestHours))
	m.Register(NewMaxHoursPerWeekConstraint(settings.DefaultMaxWeeklyHours))
	m.Register(NewQualificationConstraint())
	m.Register(NewBlockedShiftConstraint(WeightBlocked, true))

	// 软约束
	m.Register(NewCoverageConstraint(WeightCoverage))
	m.Register(NewPreferredShiftConstraint(WeightPreference))
	m.Register(NewBlockedShiftConstraint(WeightBlocked, false))
	m.Register(NewWorkloadBalanceConstraint(WeightBalance))
	m.Register(NewUnsocialFairnessConstraint(WeightUnsocial))
	m.Register(NewMinHoursConstraint(WeightMinHours))
	m.Register(NewCustomRuleConstraint(WeightCustom))
}
