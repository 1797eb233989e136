// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// QualificationConstraint 资质与技能约束
// 员工必须满足班次自身的要求以及命中的 skill_requirement 规则。
// 标记为 RequirementRelaxed 的分配跳过检查
type QualificationConstraint struct {
	*BaseConstraint
}

// NewQualificationConstraint 创建资质约束
func NewQualificationConstraint() *QualificationConstraint {
	return &QualificationConstraint{
		BaseConstraint: NewBaseConstraint(
			"资质与技能要求",
			constraint.TypeQualification,
			constraint.CategoryHard,
			100,
		),
	}
}

// Evaluate 评估整个排班
func (c *QualificationConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
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
				Message:        fmt.Sprintf("员工 %s 不满足 %s 班次的资质要求", name, a.Date),
				Severity:       "error",
				Penalty:        penalty,
			})
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *QualificationConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	if a.RequirementRelaxed {
		return true, 0
	}

	emp := ctx.GetEmployee(a.EmployeeID)
	shift := ctx.GetShift(a.ShiftID)
	if emp == nil || shift == nil {
		return false, c.Weight()
	}

	if !emp.MeetsRequirements(shift.Requirements) {
		return false, c.Weight()
	}

	// 规则追加的要求
	for _, r := range ctx.RulesFor(model.RuleSkillRequirement, emp.ID) {
		params, ok := r.Params.(*model.SkillRequirementParams)
		if !ok {
			continue
		}
		if len(params.ShiftTypes) > 0 && !containsString(params.ShiftTypes, shift.Type) {
			continue
		}
		for _, q := range params.Qualifications {
			if !emp.HasQualification(q) {
				return false, c.Weight()
			}
		}
		for _, s := range params.Skills {
			if !emp.HasSkill(s) {
				return false, c.Weight()
			}
		}
	}

	return true, 0
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
