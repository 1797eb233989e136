// Package scenario 提供场景测试
package scenario

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
	"github.com/banbiao/banbiao/pkg/scheduler/solver"
	"github.com/banbiao/banbiao/pkg/validator"
)

func createEmployee(name string, quals ...string) *model.Employee {
	return &model.Employee{
		BaseModel:      model.NewBaseModel(),
		Name:           name,
		Status:         "active",
		Qualifications: quals,
	}
}

func createShift(name, shiftType, date, start, end string, required int) *model.Shift {
	return &model.Shift{
		BaseModel:     model.NewBaseModel(),
		Name:          name,
		Type:          shiftType,
		Date:          date,
		StartTime:     start,
		EndTime:       end,
		RequiredStaff: required,
		Priority:      5,
	}
}

func createAssignment(emp *model.Employee, shift *model.Shift, status string) *model.Assignment {
	interval, _ := shift.Interval()
	return &model.Assignment{
		BaseModel:  model.NewBaseModel(),
		ShiftID:    shift.ID,
		EmployeeID: emp.ID,
		Date:       shift.Date,
		StartTime:  interval.Start,
		EndTime:    interval.End,
		Status:     status,
	}
}

func createRule(t *testing.T, ruleType model.RuleType, employeeID *uuid.UUID, priority int, params model.RuleParams) *model.Rule {
	t.Helper()
	if err := params.Validate(); err != nil {
		t.Fatalf("规则参数无效: %v", err)
	}
	return &model.Rule{
		BaseModel:  model.NewBaseModel(),
		Type:       ruleType,
		EmployeeID: employeeID,
		Priority:   priority,
		Active:     true,
		Params:     params,
	}
}

func solve(t *testing.T, snapshot *builder.Snapshot) *solver.Result {
	t.Helper()
	problem, err := builder.New(constraint.DefaultSettings()).Build(uuid.New(), snapshot)
	if err != nil {
		t.Fatalf("问题构建失败: %v", err)
	}
	result, err := solver.NewGreedySolver().Solve(context.Background(), problem)
	if err != nil {
		t.Fatalf("求解失败: %v", err)
	}
	return result
}

func detect(snapshot *builder.Snapshot) []validator.Conflict {
	ctx := constraint.NewContext(uuid.New(), snapshot.StartDate, snapshot.EndDate)
	ctx.SetEmployees(snapshot.Employees)
	ctx.SetShifts(snapshot.Shifts)
	ctx.SetRules(snapshot.Rules)
	ctx.SetAssignments(snapshot.Assignments)
	return validator.NewDetector(constraint.DefaultSettings()).Detect(ctx)
}
