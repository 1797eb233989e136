package solver

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

func newEmployee(name string, quals ...string) *model.Employee {
	return &model.Employee{
		BaseModel:      model.NewBaseModel(),
		Name:           name,
		Status:         "active",
		Qualifications: quals,
	}
}

func newShift(name, date, start, end string, required int) *model.Shift {
	return &model.Shift{
		BaseModel:     model.NewBaseModel(),
		Name:          name,
		Type:          model.ShiftTypeDay,
		Date:          date,
		StartTime:     start,
		EndTime:       end,
		RequiredStaff: required,
		Priority:      5,
	}
}

func buildProblem(t *testing.T, snapshot *builder.Snapshot) *builder.Problem {
	t.Helper()
	problem, err := builder.New(constraint.DefaultSettings()).Build(uuid.New(), snapshot)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return problem
}

func TestGreedySolver_Optimal(t *testing.T) {
	snapshot := &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{newEmployee("张三"), newEmployee("李四")},
		Shifts: []*model.Shift{
			newShift("早班", "2026-01-12", "08:00", "16:00", 1),
			newShift("晚班", "2026-01-12", "16:00", "23:00", 1),
		},
	}

	s := NewGreedySolver()
	result, err := s.Solve(context.Background(), buildProblem(t, snapshot))
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}

	if result.Status != StatusOptimal {
		t.Errorf("Status = %s, expected optimal（%s）", result.Status, result.Message)
	}
	if len(result.Assignments) != 2 {
		t.Errorf("Assignments = %d, expected 2", len(result.Assignments))
	}
	for _, a := range result.Assignments {
		if !a.AutoAssigned {
			t.Error("求解产生的分配应标记 AutoAssigned")
		}
		if a.Status != model.AssignmentStatusAssigned {
			t.Errorf("分配状态 = %s, expected assigned", a.Status)
		}
	}
}

func TestGreedySolver_FairnessOrdering(t *testing.T) {
	// 三个同日不重叠班次、两名员工：工时少的员工优先
	snapshot := &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{newEmployee("张三"), newEmployee("李四")},
		Shifts: []*model.Shift{
			newShift("早班", "2026-01-12", "06:00", "10:00", 1),
			newShift("午班", "2026-01-12", "11:00", "15:00", 1),
		},
	}

	s := NewGreedySolver()
	result, err := s.Solve(context.Background(), buildProblem(t, snapshot))
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}

	if len(result.Assignments) != 2 {
		t.Fatalf("Assignments = %d, expected 2", len(result.Assignments))
	}
	if result.Assignments[0].EmployeeID == result.Assignments[1].EmployeeID {
		t.Error("两个班次应分给不同员工以保证公平")
	}
}

func TestGreedySolver_CoverageGap(t *testing.T) {
	// 需要 2 人但只有 1 名员工：可行但有缺口
	snapshot := &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{newEmployee("张三")},
		Shifts:    []*model.Shift{newShift("早班", "2026-01-12", "08:00", "16:00", 2)},
	}

	s := NewGreedySolver()
	result, err := s.Solve(context.Background(), buildProblem(t, snapshot))
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}

	if result.Status != StatusFeasible {
		t.Errorf("Status = %s, expected feasible", result.Status)
	}
	if len(result.Gaps) != 1 {
		t.Fatalf("Gaps = %d, expected 1", len(result.Gaps))
	}
	if result.Gaps[0].Assigned != 1 || result.Gaps[0].Required != 2 {
		t.Errorf("缺口记录错误: %+v", result.Gaps[0])
	}
}

func TestGreedySolver_RelaxationLadder(t *testing.T) {
	// 仅有的员工缺少资质：常规候选为空，放宽后可排
	snapshot := &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{newEmployee("张三")},
		Shifts:    []*model.Shift{newShift("手术班", "2026-01-12", "08:00", "16:00", 1)},
	}
	snapshot.Shifts[0].Requirements = model.ShiftRequirements{Qualifications: []string{"surgery_cert"}}

	s := NewGreedySolver()
	result, err := s.Solve(context.Background(), buildProblem(t, snapshot))
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}

	if result.Status != StatusFeasible {
		t.Errorf("Status = %s, expected feasible", result.Status)
	}
	if len(result.Relaxations) != 1 {
		t.Fatalf("Relaxations = %d, expected 1", len(result.Relaxations))
	}
	if len(result.Assignments) != 1 || !result.Assignments[0].RequirementRelaxed {
		t.Error("放宽分配应标记 RequirementRelaxed")
	}
}

func TestGreedySolver_RespectsRestRule(t *testing.T) {
	// 23:00 结束与次日 05:00 开始之间仅 6 小时，违反 8 小时休息
	emp := newEmployee("张三")
	snapshot := &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{emp},
		Shifts: []*model.Shift{
			newShift("晚班", "2026-01-12", "15:00", "23:00", 1),
			newShift("早班", "2026-01-13", "05:00", "13:00", 1),
		},
		Rules: []*model.Rule{{
			BaseModel: model.NewBaseModel(),
			Type:      model.RuleRestPeriod,
			Priority:  5,
			Active:    true,
			Params:    &model.RestPeriodParams{MinRestHours: 8},
		}},
	}

	s := NewGreedySolver()
	result, err := s.Solve(context.Background(), buildProblem(t, snapshot))
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}

	// 第二个班次无法分配，留下缺口而不是违反休息
	if len(result.Assignments) != 1 {
		t.Errorf("Assignments = %d, expected 1", len(result.Assignments))
	}
	if result.ConstraintResult.IsValid == false {
		t.Error("贪心求解不应产生硬约束违反")
	}
	if len(result.Gaps) != 1 {
		t.Errorf("Gaps = %d, expected 1", len(result.Gaps))
	}
}

func TestGreedySolver_Timeout(t *testing.T) {
	var shifts []*model.Shift
	date := "2026-01-12"
	for i := 0; i < 20; i++ {
		shifts = append(shifts, newShift("班次", date, "08:00", "16:00", 1))
		date = model.NextDate(date)
	}

	snapshot := &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-31",
		Employees: []*model.Employee{newEmployee("张三"), newEmployee("李四")},
		Shifts:    shifts,
	}

	s := NewGreedySolver()
	s.SetTimeBudget(0) // 预算立即耗尽
	result, err := s.Solve(context.Background(), buildProblem(t, snapshot))
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}

	if result.Status != StatusTimeout {
		t.Errorf("Status = %s, expected timeout", result.Status)
	}
}

func TestGreedySolver_OvernightShift(t *testing.T) {
	snapshot := &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{newEmployee("张三")},
		Shifts:    []*model.Shift{newShift("夜班", "2026-01-12", "22:00", "06:00", 1)},
	}

	s := NewGreedySolver()
	result, err := s.Solve(context.Background(), buildProblem(t, snapshot))
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}

	if len(result.Assignments) != 1 {
		t.Fatalf("Assignments = %d, expected 1", len(result.Assignments))
	}
	a := result.Assignments[0]
	if !a.EndTime.After(a.StartTime) {
		t.Error("跨夜分配的结束时间应晚于开始时间")
	}
	if a.EndTime.Sub(a.StartTime) != 8*time.Hour {
		t.Errorf("跨夜分配时长 = %v, expected 8h", a.EndTime.Sub(a.StartTime))
	}
}
