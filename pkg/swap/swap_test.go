package swap

import (
	"testing"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint/builtin"
)

func newEmployee(name string, quals ...string) *model.Employee {
	return &model.Employee{
		BaseModel:      model.NewBaseModel(),
		Name:           name,
		Status:         "active",
		Qualifications: quals,
	}
}

func newShift(name, date, start, end string) *model.Shift {
	return &model.Shift{
		BaseModel:     model.NewBaseModel(),
		Name:          name,
		Type:          model.ShiftTypeDay,
		Date:          date,
		StartTime:     start,
		EndTime:       end,
		RequiredStaff: 1,
		Priority:      5,
	}
}

func newAssignment(emp *model.Employee, shift *model.Shift) *model.Assignment {
	interval, _ := shift.Interval()
	return &model.Assignment{
		BaseModel:  model.NewBaseModel(),
		ShiftID:    shift.ID,
		EmployeeID: emp.ID,
		Date:       shift.Date,
		StartTime:  interval.Start,
		EndTime:    interval.End,
		Status:     model.AssignmentStatusAssigned,
	}
}

func newTestContext(employees []*model.Employee, shifts []*model.Shift, assignments []*model.Assignment) (*constraint.Context, *constraint.Manager) {
	ctx := constraint.NewContext(uuid.New(), "2026-01-12", "2026-01-18")
	ctx.SetEmployees(employees)
	ctx.SetShifts(shifts)
	ctx.SetAssignments(assignments)

	m := constraint.NewManager()
	builtin.RegisterAll(m, ctx.Settings)
	return ctx, m
}

func TestEvaluator_Feasible(t *testing.T) {
	emp1 := newEmployee("张三")
	emp2 := newEmployee("李四")
	shift := newShift("早班", "2026-01-12", "08:00", "16:00")
	a := newAssignment(emp1, shift)

	ctx, m := newTestContext([]*model.Employee{emp1, emp2}, []*model.Shift{shift}, []*model.Assignment{a})

	evaluation := NewEvaluator(m, ctx.Settings).Evaluate(ctx, &Request{
		SourceAssignment: a,
		TargetEmployee:   emp2,
	})

	if !evaluation.Feasible {
		t.Fatalf("换班应可行: %+v", evaluation.Issues)
	}
	if evaluation.Impact.TargetEmployeeImpact.HoursChange != 8 {
		t.Errorf("目标员工工时变化 = %f, expected 8", evaluation.Impact.TargetEmployeeImpact.HoursChange)
	}
	if evaluation.Impact.SourceEmployeeImpact.HoursChange != -8 {
		t.Errorf("源员工工时变化 = %f, expected -8", evaluation.Impact.SourceEmployeeImpact.HoursChange)
	}
}

func TestEvaluator_InactiveTarget(t *testing.T) {
	emp1 := newEmployee("张三")
	emp2 := newEmployee("李四")
	emp2.Status = "inactive"
	shift := newShift("早班", "2026-01-12", "08:00", "16:00")
	a := newAssignment(emp1, shift)

	ctx, m := newTestContext([]*model.Employee{emp1, emp2}, []*model.Shift{shift}, []*model.Assignment{a})

	ok, reasonMsg := NewEvaluator(m, ctx.Settings).CanSwap(ctx, &Request{
		SourceAssignment: a,
		TargetEmployee:   emp2,
	})
	if ok {
		t.Error("离职员工不应可换班")
	}
	if reasonMsg == "" {
		t.Error("拒绝换班应给出原因")
	}
}

func TestEvaluator_QualificationMismatch(t *testing.T) {
	emp1 := newEmployee("张三", "surgery_cert")
	emp2 := newEmployee("李四")
	shift := newShift("手术班", "2026-01-12", "08:00", "16:00")
	shift.Requirements = model.ShiftRequirements{Qualifications: []string{"surgery_cert"}}
	a := newAssignment(emp1, shift)

	ctx, m := newTestContext([]*model.Employee{emp1, emp2}, []*model.Shift{shift}, []*model.Assignment{a})

	evaluation := NewEvaluator(m, ctx.Settings).Evaluate(ctx, &Request{
		SourceAssignment: a,
		TargetEmployee:   emp2,
	})
	if evaluation.Feasible {
		t.Error("缺少资质的目标员工不应可换班")
	}
}

func TestEvaluator_TargetHasOverlap(t *testing.T) {
	emp1 := newEmployee("张三")
	emp2 := newEmployee("李四")
	s1 := newShift("早班", "2026-01-12", "08:00", "16:00")
	s2 := newShift("重叠班", "2026-01-12", "12:00", "20:00")

	a1 := newAssignment(emp1, s1)
	a2 := newAssignment(emp2, s2)

	ctx, m := newTestContext([]*model.Employee{emp1, emp2}, []*model.Shift{s1, s2}, []*model.Assignment{a1, a2})

	// emp2 已有 12:00-20:00 班次，接管 08:00-16:00 会重叠
	evaluation := NewEvaluator(m, ctx.Settings).Evaluate(ctx, &Request{
		SourceAssignment: a1,
		TargetEmployee:   emp2,
	})
	if evaluation.Feasible {
		t.Error("换班导致重叠时应判定不可行")
	}
}

func TestRecommender_RecommendTargets(t *testing.T) {
	emp1 := newEmployee("张三")
	emp2 := newEmployee("李四")
	emp3 := newEmployee("王五")
	shift := newShift("早班", "2026-01-12", "08:00", "16:00")
	a := newAssignment(emp1, shift)

	ctx, m := newTestContext([]*model.Employee{emp1, emp2, emp3}, []*model.Shift{shift}, []*model.Assignment{a})

	recommendations := NewRecommender(m, ctx.Settings).RecommendTargets(ctx, a, nil)
	if len(recommendations) == 0 {
		t.Fatal("应有可用的换班推荐")
	}
	for _, rec := range recommendations {
		if rec.TargetEmployee.ID == emp1.ID {
			t.Error("源员工不应出现在推荐中")
		}
		if rec.Rank == 0 {
			t.Error("推荐应有排名")
		}
	}
}

func TestRecommender_AutoAssign(t *testing.T) {
	emp1 := newEmployee("张三")
	emp2 := newEmployee("李四")
	shift := newShift("早班", "2026-01-12", "08:00", "16:00")
	a := newAssignment(emp1, shift)

	ctx, m := newTestContext([]*model.Employee{emp1, emp2}, []*model.Shift{shift}, []*model.Assignment{a})

	replacement := NewRecommender(m, ctx.Settings).AutoAssign(ctx, a)
	if replacement == nil {
		t.Fatal("应能自动找到替换人")
	}
	if replacement.EmployeeID != emp2.ID {
		t.Error("替换分配应指向目标员工")
	}
	if !replacement.Swapped {
		t.Error("替换分配应标记 Swapped")
	}
	if replacement.OriginalEmployeeID == nil || *replacement.OriginalEmployeeID != emp1.ID {
		t.Error("替换分配应记录原承接人")
	}
	if replacement.ID == a.ID {
		t.Error("替换分配应使用新ID")
	}
}
