package stats

import (
	"math"
	"testing"
	"time"

	"github.com/banbiao/banbiao/pkg/model"
)

func newEmployee(name string) *model.Employee {
	return &model.Employee{
		BaseModel: model.NewBaseModel(),
		Name:      name,
		Status:    "active",
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

func TestCoverageAnalyzer_Analyze(t *testing.T) {
	emp := newEmployee("张三")
	full := newShift("早班", "2026-01-12", "08:00", "16:00", 1)
	partial := newShift("晚班", "2026-01-12", "16:00", "23:00", 2)

	metrics := NewCoverageAnalyzer().Analyze(
		[]*model.Shift{full, partial},
		[]*model.Assignment{newAssignment(emp, full), newAssignment(emp, partial)},
	)

	if metrics.TotalShifts != 2 {
		t.Errorf("TotalShifts = %d, expected 2", metrics.TotalShifts)
	}
	if metrics.FilledShifts != 1 {
		t.Errorf("FilledShifts = %d, expected 1", metrics.FilledShifts)
	}
	if metrics.RequiredSlots != 3 || metrics.FilledSlots != 2 {
		t.Errorf("槽位统计 = %d/%d, expected 2/3", metrics.FilledSlots, metrics.RequiredSlots)
	}

	expected := 2.0 / 3.0 * 100
	if math.Abs(metrics.OverallCoverage-expected) > 0.01 {
		t.Errorf("OverallCoverage = %f, expected %f", metrics.OverallCoverage, expected)
	}

	if len(metrics.UncoveredShifts) != 1 {
		t.Fatalf("UncoveredShifts = %d, expected 1", len(metrics.UncoveredShifts))
	}
	if metrics.UncoveredShifts[0].ShiftID != partial.ID {
		t.Error("缺员班次记录错误")
	}

	day, ok := metrics.DailyCoverage["2026-01-12"]
	if !ok {
		t.Fatal("缺少每日覆盖统计")
	}
	if day.TotalShifts != 2 || day.FilledSlots != 2 {
		t.Errorf("每日统计 = %+v", day)
	}
}

func TestCoverageAnalyzer_DeclinedNotCounted(t *testing.T) {
	emp := newEmployee("张三")
	shift := newShift("早班", "2026-01-12", "08:00", "16:00", 1)

	a := newAssignment(emp, shift)
	a.Status = model.AssignmentStatusDeclined

	metrics := NewCoverageAnalyzer().Analyze([]*model.Shift{shift}, []*model.Assignment{a})
	if metrics.FilledSlots != 0 {
		t.Errorf("FilledSlots = %d, expected 0", metrics.FilledSlots)
	}
}

func TestCoverageAnalyzer_EmptyInput(t *testing.T) {
	metrics := NewCoverageAnalyzer().Analyze(nil, nil)
	if metrics.OverallCoverage != 100 {
		t.Errorf("空输入覆盖率 = %f, expected 100", metrics.OverallCoverage)
	}
}

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	emp1 := newEmployee("张三")
	emp2 := newEmployee("李四")

	s1 := newShift("早班1", "2026-01-12", "08:00", "16:00", 1)
	s2 := newShift("早班2", "2026-01-13", "08:00", "16:00", 1)
	s3 := newShift("早班3", "2026-01-12", "16:00", "23:00", 1)

	// 员工1共15小时，员工2共8小时
	metrics := NewFairnessAnalyzer(40).Analyze(
		[]*model.Assignment{
			newAssignment(emp1, s1),
			newAssignment(emp1, s3),
			newAssignment(emp2, s2),
		},
		[]*model.Employee{emp1, emp2},
		[]*model.Shift{s1, s2, s3},
	)

	if metrics.WorkloadGini <= 0 || metrics.WorkloadGini > 1 {
		t.Errorf("WorkloadGini = %f, expected (0, 1]", metrics.WorkloadGini)
	}
	if len(metrics.EmployeeStats) != 2 {
		t.Fatalf("EmployeeStats = %d, expected 2", len(metrics.EmployeeStats))
	}
	// 按工时降序排列
	if metrics.EmployeeStats[0].EmployeeID != emp1.ID {
		t.Error("员工统计应按工时降序排列")
	}
	if metrics.EmployeeStats[0].TotalHours != 15 {
		t.Errorf("TotalHours = %f, expected 15", metrics.EmployeeStats[0].TotalHours)
	}
	if metrics.MaxHours != 15 || metrics.MinHours != 8 {
		t.Errorf("工时极值 = %f/%f, expected 15/8", metrics.MaxHours, metrics.MinHours)
	}
}

func TestFairnessAnalyzer_PerfectFairness(t *testing.T) {
	emp1 := newEmployee("张三")
	emp2 := newEmployee("李四")
	s1 := newShift("早班", "2026-01-12", "08:00", "16:00", 1)
	s2 := newShift("晚班", "2026-01-12", "16:00", "00:00", 1)

	metrics := NewFairnessAnalyzer(40).Analyze(
		[]*model.Assignment{newAssignment(emp1, s1), newAssignment(emp2, s2)},
		[]*model.Employee{emp1, emp2},
		[]*model.Shift{s1, s2},
	)

	if metrics.WorkloadGini != 0 {
		t.Errorf("相同工时的 Gini = %f, expected 0", metrics.WorkloadGini)
	}
	if metrics.WorkloadStdDev != 0 {
		t.Errorf("相同工时的标准差 = %f, expected 0", metrics.WorkloadStdDev)
	}
}

func TestFairnessAnalyzer_UnsocialShifts(t *testing.T) {
	emp := newEmployee("张三")
	night := newShift("夜班", "2026-01-12", "22:00", "06:00", 1)
	night.Type = model.ShiftTypeNight

	metrics := NewFairnessAnalyzer(40).Analyze(
		[]*model.Assignment{newAssignment(emp, night)},
		[]*model.Employee{emp},
		[]*model.Shift{night},
	)

	if len(metrics.EmployeeStats) != 1 {
		t.Fatalf("EmployeeStats = %d, expected 1", len(metrics.EmployeeStats))
	}
	if metrics.EmployeeStats[0].UnsocialShifts != 1 {
		t.Errorf("UnsocialShifts = %d, expected 1", metrics.EmployeeStats[0].UnsocialShifts)
	}
}

func TestFairnessAnalyzer_WeekendShifts(t *testing.T) {
	emp := newEmployee("张三")
	// 2026-01-17 是周六
	weekend := newShift("周末班", "2026-01-17", "08:00", "16:00", 1)

	metrics := NewFairnessAnalyzer(40).Analyze(
		[]*model.Assignment{newAssignment(emp, weekend)},
		[]*model.Employee{emp},
		[]*model.Shift{weekend},
	)

	if metrics.EmployeeStats[0].WeekendShifts != 1 {
		t.Errorf("WeekendShifts = %d, expected 1", metrics.EmployeeStats[0].WeekendShifts)
	}
}

func TestFairnessAnalyzer_EmptyInput(t *testing.T) {
	metrics := NewFairnessAnalyzer(40).Analyze(nil, nil, nil)
	if metrics.OverallFairnessScore != 100 {
		t.Errorf("空输入评分 = %f, expected 100", metrics.OverallFairnessScore)
	}
}

func TestBuildScheduleStats(t *testing.T) {
	emp := newEmployee("张三")
	shift := newShift("早班", "2026-01-12", "08:00", "16:00", 1)
	assignments := []*model.Assignment{newAssignment(emp, shift)}

	s := BuildScheduleStats(
		[]*model.Shift{shift},
		assignments,
		[]*model.Employee{emp},
		nil,
		"optimal",
		250*time.Millisecond,
		40,
	)

	if s.TotalShifts != 1 || s.FilledSlots != 1 {
		t.Errorf("统计 = %+v", s)
	}
	if s.CoverageRate != 100 {
		t.Errorf("CoverageRate = %f, expected 100", s.CoverageRate)
	}
	if s.TotalHours != 8 {
		t.Errorf("TotalHours = %f, expected 8", s.TotalHours)
	}
	if s.SolveDurationMS != 250 {
		t.Errorf("SolveDurationMS = %d, expected 250", s.SolveDurationMS)
	}
	if s.SolverStatus != "optimal" {
		t.Errorf("SolverStatus = %s, expected optimal", s.SolverStatus)
	}
}
