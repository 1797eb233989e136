package stats

import (
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// BuildScheduleStats 汇总排班统计，写入排班表的 Stats 字段
func BuildScheduleStats(
	shifts []*model.Shift,
	assignments []*model.Assignment,
	employees []*model.Employee,
	result *constraint.Result,
	solverStatus string,
	solveDuration time.Duration,
	standardWeeklyHours float64,
) *model.ScheduleStats {
	coverage := NewCoverageAnalyzer().Analyze(shifts, assignments)
	fairness := NewFairnessAnalyzer(standardWeeklyHours).Analyze(assignments, employees, shifts)

	s := &model.ScheduleStats{
		TotalShifts:     coverage.TotalShifts,
		FilledSlots:     coverage.FilledSlots,
		RequiredSlots:   coverage.RequiredSlots,
		CoverageRate:    coverage.OverallCoverage,
		HoursStdDev:     fairness.WorkloadStdDev,
		SolveDurationMS: solveDuration.Milliseconds(),
		SolverStatus:    solverStatus,
	}

	worked := make(map[uuid.UUID]struct{})
	for _, a := range assignments {
		if a.Countable() {
			s.TotalHours += a.WorkingHours()
			worked[a.EmployeeID] = struct{}{}
		}
	}
	if len(worked) > 0 {
		s.AvgHoursPerEmp = s.TotalHours / float64(len(worked))
	}

	if result != nil {
		s.HardViolations = len(result.HardViolations)
		s.SoftPenalty = float64(result.TotalPenalty)
	}

	return s
}
