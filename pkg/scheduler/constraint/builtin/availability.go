// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"time"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// AvailabilityConstraint 员工可用性约束
// 分配必须落入员工声明的可用时段，指定日期的覆盖规则
// 优先于每周声明，跨午夜分配按自然日拆分检查
type AvailabilityConstraint struct {
	*BaseConstraint
}

// NewAvailabilityConstraint 创建可用性约束
func NewAvailabilityConstraint() *AvailabilityConstraint {
	return &AvailabilityConstraint{
		BaseConstraint: NewBaseConstraint(
			"员工可用性",
			constraint.TypeAvailability,
			constraint.CategoryHard,
			100,
		),
	}
}

// Evaluate 评估整个排班
func (c *AvailabilityConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, a := range ctx.Assignments {
		if !a.Countable() {
			continue
		}
		if valid, _ := c.EvaluateAssignment(ctx, a); !valid {
			isValid = false
			penalty := c.Weight()
			totalPenalty += penalty

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
				Message:        fmt.Sprintf("员工 %s 在 %s 的班次超出其可用时段", name, a.Date),
				Severity:       "error",
				Penalty:        penalty,
			})
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *AvailabilityConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp := ctx.GetEmployee(a.EmployeeID)
	if emp == nil {
		return false, c.Weight()
	}

	// 按自然日拆分区间后逐段检查
	segStart := a.StartTime
	for segStart.Before(a.EndTime) {
		midnight := time.Date(segStart.Year(), segStart.Month(), segStart.Day(), 0, 0, 0, 0, segStart.Location()).AddDate(0, 0, 1)
		segEnd := a.EndTime
		if midnight.Before(segEnd) {
			segEnd = midnight
		}

		date := segStart.Format(model.DateFormat)
		startClock := segStart.Format(model.ClockFormat)
		endClock := segEnd.Format(model.ClockFormat)
		if endClock == "00:00" {
			endClock = "24:00"
		}

		if slots, overridden := ctx.AvailabilityFor(emp.ID, date); overridden {
			if !slotsAllow(slots, startClock, endClock) {
				return false, c.Weight()
			}
		} else if !emp.AvailableOn(segStart.Weekday(), startClock, endClock) {
			return false, c.Weight()
		}

		segStart = segEnd
	}

	return true, 0
}

// slotsAllow 检查时段声明是否允许指定区间
// 语义与每周可用性一致：available 段须覆盖，unavailable 段不得相交
func slotsAllow(slots []model.AvailabilitySlot, start, end string) bool {
	covered := false
	hasAvailable := false
	for _, slot := range slots {
		if slot.Available {
			hasAvailable = true
			if slot.Start <= start && end <= slot.End {
				covered = true
			}
		} else if slot.Start < end && start < slot.End {
			return false
		}
	}
	if !hasAvailable {
		return true
	}
	return covered
}
