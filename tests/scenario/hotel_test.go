package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
	"github.com/banbiao/banbiao/pkg/scheduler/optimizer"
	"github.com/banbiao/banbiao/pkg/validator"
)

// TestHotelOvernightShift 跨午夜班次的时长与跨日处理
func TestHotelOvernightShift(t *testing.T) {
	emp := createEmployee("张三")
	night := createShift("夜班", model.ShiftTypeNight, "2026-03-02", "22:00", "06:00", 1)

	snapshot := &builder.Snapshot{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-08",
		Employees: []*model.Employee{emp},
		Shifts:    []*model.Shift{night},
	}

	result := solve(t, snapshot)

	if len(result.Assignments) != 1 {
		t.Fatalf("分配数 = %d, 期望 1", len(result.Assignments))
	}
	a := result.Assignments[0]
	if got := a.WorkingHours(); got != 8 {
		t.Errorf("工时 = %.1f, 期望 8", got)
	}
	if !a.EndTime.After(a.StartTime) {
		t.Error("跨午夜班次的结束时刻必须晚于开始时刻")
	}
	if a.EndTime.Day() == a.StartTime.Day() {
		t.Error("跨午夜班次应结束于次日")
	}
}

// TestHotelNightThenMorningRest 夜班下班后紧接早班，
// 默认 11 小时最小休息不满足时应检出冲突
func TestHotelNightThenMorningRest(t *testing.T) {
	emp := createEmployee("张三")
	night := createShift("夜班", model.ShiftTypeNight, "2026-03-02", "22:00", "06:00", 1)
	morning := createShift("早班", model.ShiftTypeDay, "2026-03-03", "09:00", "17:00", 1)

	snapshot := &builder.Snapshot{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-08",
		Employees: []*model.Employee{emp},
		Shifts:    []*model.Shift{night, morning},
		Assignments: []*model.Assignment{
			createAssignment(emp, night, model.AssignmentStatusAssigned),
			createAssignment(emp, morning, model.AssignmentStatusAssigned),
		},
	}

	conflicts := detect(snapshot)

	found := false
	for _, c := range conflicts {
		if c.Type == validator.ConflictRestPeriod {
			found = true
		}
	}
	if !found {
		t.Error("夜班后 3 小时即上早班应检出 rest_period 冲突")
	}
}

// TestHotelMaxHoursDetection 一周排满 7 个 8 小时班超出默认 40 小时上限
func TestHotelMaxHoursDetection(t *testing.T) {
	emp := createEmployee("张三")
	shifts := make([]*model.Shift, 0, 7)
	assignments := make([]*model.Assignment, 0, 7)
	for day := 2; day <= 8; day++ {
		date := time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC).Format(model.DateFormat)
		s := createShift("白班", model.ShiftTypeDay, date, "09:00", "17:00", 1)
		shifts = append(shifts, s)
		assignments = append(assignments, createAssignment(emp, s, model.AssignmentStatusAssigned))
	}

	snapshot := &builder.Snapshot{
		StartDate:   "2026-03-02",
		EndDate:     "2026-03-08",
		Employees:   []*model.Employee{emp},
		Shifts:      shifts,
		Assignments: assignments,
	}

	conflicts := detect(snapshot)

	found := false
	for _, c := range conflicts {
		if c.Type == validator.ConflictMaxHours {
			found = true
		}
	}
	if !found {
		t.Error("周工时 56 小时 > 40 小时上限，应检出 max_hours 冲突")
	}
}

// TestHotelOptimizeDoesNotRegress 优化只接受严格更优的解
func TestHotelOptimizeDoesNotRegress(t *testing.T) {
	employees := []*model.Employee{
		createEmployee("张三"),
		createEmployee("李四"),
		createEmployee("王五"),
	}
	shifts := make([]*model.Shift, 0)
	for day := 2; day <= 5; day++ {
		date := time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC).Format(model.DateFormat)
		shifts = append(shifts, createShift("早班", model.ShiftTypeDay, date, "08:00", "16:00", 1))
		shifts = append(shifts, createShift("晚班", model.ShiftTypeEvening, date, "16:00", "23:00", 1))
	}

	snapshot := &builder.Snapshot{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-08",
		Employees: employees,
		Shifts:    shifts,
	}

	problem, err := builder.New(constraint.DefaultSettings()).Build(uuid.New(), snapshot)
	if err != nil {
		t.Fatalf("问题构建失败: %v", err)
	}
	result := solve(t, snapshot)

	cfg := optimizer.DefaultOptConfig()
	cfg.MaxIterations = 200
	cfg.MaxTime = 5 * time.Second

	evaluator := optimizer.NewManagerEvaluator(problem)
	initial := &optimizer.Solution{Assignments: result.Assignments}
	optimized, err := optimizer.NewLocalSearchOptimizer(cfg, evaluator).Optimize(context.Background(), initial, problem)
	if err != nil {
		t.Fatalf("优化失败: %v", err)
	}

	if optimized.Score > initial.Score {
		t.Errorf("优化后得分 %.2f 比初始 %.2f 更差", optimized.Score, initial.Score)
	}
	if len(optimized.Assignments) != len(initial.Assignments) {
		t.Errorf("优化不应增减分配: %d -> %d", len(initial.Assignments), len(optimized.Assignments))
	}
}
