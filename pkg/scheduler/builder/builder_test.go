package builder

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/model"
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

func newShift(name, date string, required int, quals ...string) *model.Shift {
	return &model.Shift{
		BaseModel:     model.NewBaseModel(),
		Name:          name,
		Type:          model.ShiftTypeDay,
		Date:          date,
		StartTime:     "08:00",
		EndTime:       "16:00",
		RequiredStaff: required,
		Priority:      5,
		Requirements:  model.ShiftRequirements{Qualifications: quals},
	}
}

func TestBuilder_Build(t *testing.T) {
	b := New(constraint.DefaultSettings())

	snapshot := &Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{newEmployee("张三"), newEmployee("李四")},
		Shifts:    []*model.Shift{newShift("早班", "2026-01-12", 2)},
	}

	problem, err := b.Build(uuid.New(), snapshot)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(problem.Variables) != 1 {
		t.Fatalf("Variables = %d, expected 1", len(problem.Variables))
	}
	if len(problem.Variables[0].Eligible) != 2 {
		t.Errorf("Eligible = %d, expected 2", len(problem.Variables[0].Eligible))
	}
	if len(problem.Gaps) != 0 {
		t.Errorf("Gaps = %d, expected 0", len(problem.Gaps))
	}
}

func TestBuilder_EmptyInput(t *testing.T) {
	b := New(constraint.DefaultSettings())

	_, err := b.Build(uuid.New(), &Snapshot{StartDate: "2026-01-12", EndDate: "2026-01-18"})
	if !errors.Is(err, errors.CodeEmptyInput) {
		t.Errorf("空输入应返回 EMPTY_INPUT, got %v", err)
	}
}

func TestBuilder_NoEligibleEmployees(t *testing.T) {
	b := New(constraint.DefaultSettings())

	// 班次要求的资质没有任何员工具备
	snapshot := &Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{newEmployee("张三")},
		Shifts:    []*model.Shift{newShift("手术班", "2026-01-12", 1, "surgery_cert")},
	}

	// 资质可放宽的员工存在时不算零候选
	problem, err := b.Build(uuid.New(), snapshot)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(problem.Variables[0].Eligible) != 0 || len(problem.Variables[0].Relaxable) != 1 {
		t.Error("无资质员工应进入可放宽候选")
	}

	// 员工完全不可用时才是零候选
	unavailable := newEmployee("王五")
	unavailable.WeeklyAvailability = map[time.Weekday][]model.AvailabilitySlot{
		time.Monday: {{Start: "00:00", End: "23:59", Available: false}},
	}
	snapshot.Employees = []*model.Employee{unavailable}
	_, err = b.Build(uuid.New(), snapshot)
	if !errors.Is(err, errors.CodeNoEligibleEmployees) {
		t.Errorf("零候选班次应返回 NO_ELIGIBLE_EMPLOYEES, got %v", err)
	}
}

func TestBuilder_CoverageGap(t *testing.T) {
	b := New(constraint.DefaultSettings())

	// 需要 3 人但只有 1 名候选：记录缺口但不失败
	snapshot := &Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{newEmployee("张三")},
		Shifts:    []*model.Shift{newShift("早班", "2026-01-12", 3)},
	}

	problem, err := b.Build(uuid.New(), snapshot)
	if err != nil {
		t.Fatalf("候选不足不应失败, error = %v", err)
	}
	if len(problem.Gaps) != 1 {
		t.Fatalf("Gaps = %d, expected 1", len(problem.Gaps))
	}
	if problem.Gaps[0].Required != 3 || problem.Gaps[0].Eligible != 1 {
		t.Errorf("缺口记录错误: %+v", problem.Gaps[0])
	}
}

func TestBuilder_VariableOrder(t *testing.T) {
	b := New(constraint.DefaultSettings())

	low := newShift("低优先级", "2026-01-12", 1)
	low.Priority = 2
	high := newShift("高优先级", "2026-01-14", 1)
	high.Priority = 9

	snapshot := &Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{newEmployee("张三")},
		Shifts:    []*model.Shift{low, high},
	}

	problem, err := b.Build(uuid.New(), snapshot)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if problem.Variables[0].Shift.Priority != 9 {
		t.Error("高优先级班次应排在前面")
	}
}

func TestBuilder_PinnedAssignments(t *testing.T) {
	b := New(constraint.DefaultSettings())

	emp := newEmployee("张三")
	shift := newShift("早班", "2026-01-12", 1)

	start, _ := time.Parse("2006-01-02 15:04", "2026-01-12 08:00")
	confirmed := &model.Assignment{
		BaseModel:  model.NewBaseModel(),
		ShiftID:    shift.ID,
		EmployeeID: emp.ID,
		Date:       "2026-01-12",
		StartTime:  start,
		EndTime:    start.Add(8 * time.Hour),
		Status:     model.AssignmentStatusConfirmed,
	}
	pending := &model.Assignment{
		BaseModel:  model.NewBaseModel(),
		ShiftID:    shift.ID,
		EmployeeID: emp.ID,
		Date:       "2026-01-12",
		StartTime:  start,
		EndTime:    start.Add(8 * time.Hour),
		Status:     model.AssignmentStatusPending,
	}

	snapshot := &Snapshot{
		StartDate:   "2026-01-12",
		EndDate:     "2026-01-18",
		Employees:   []*model.Employee{emp},
		Shifts:      []*model.Shift{shift},
		Assignments: []*model.Assignment{confirmed, pending},
	}

	problem, err := b.Build(uuid.New(), snapshot)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(problem.Pinned) != 1 {
		t.Errorf("Pinned = %d, expected 1（仅 confirmed）", len(problem.Pinned))
	}
	if len(problem.Context.Assignments) != 1 {
		t.Errorf("锁定分配应预置进上下文, got %d", len(problem.Context.Assignments))
	}
}
