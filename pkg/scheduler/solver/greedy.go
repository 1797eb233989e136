// Package solver 提供排班求解器
package solver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/logger"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// GreedySolver 贪心求解器
// 按优先级降序填充班次，候选按累计工时升序保证公平。
// 常规候选排不满时尝试放宽资质要求，放宽的分配打上标记
type GreedySolver struct {
	logger        *logger.EngineLogger
	maxIterations int
	timeBudget    time.Duration
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver() *GreedySolver {
	return &GreedySolver{
		logger:        logger.NewEngineLogger(),
		maxIterations: 1000,
		timeBudget:    30 * time.Second,
	}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// SetMaxIterations 设置最大迭代次数
func (s *GreedySolver) SetMaxIterations(max int) {
	s.maxIterations = max
}

// SetTimeBudget 设置时间预算
func (s *GreedySolver) SetTimeBudget(budget time.Duration) {
	s.timeBudget = budget
}

// Solve 生成排班方案
func (s *GreedySolver) Solve(ctx context.Context, problem *builder.Problem) (*Result, error) {
	startTime := time.Now()
	deadline := startTime.Add(s.timeBudget)
	schedCtx := problem.Context

	s.logger.StartGeneration(schedCtx.ScheduleID.String(), len(schedCtx.Employees), len(schedCtx.Shifts))

	result := &Result{
		Assignments: make([]*model.Assignment, 0),
		Statistics:  &Statistics{TotalShifts: len(problem.Variables)},
	}

	// 员工累计工时（含锁定分配）
	employeeHours := make(map[uuid.UUID]float64)
	for _, emp := range schedCtx.Employees {
		employeeHours[emp.ID] = 0
	}
	for _, a := range problem.Pinned {
		employeeHours[a.EmployeeID] += a.WorkingHours()
	}

	iterations := 0
	timedOut := false

	for _, variable := range problem.Variables {
		if ctx.Err() != nil || time.Now().After(deadline) {
			timedOut = true
			break
		}

		iterations++
		if iterations > s.maxIterations {
			timedOut = true
			break
		}

		shift := variable.Shift
		staffed := schedCtx.CountStaffed(shift.ID)

		// 常规候选，不足时进入放宽梯次
		staffed += s.fill(schedCtx, problem, variable, variable.Eligible, shift.RequiredStaff-staffed, false, employeeHours, result)
		if staffed < shift.RequiredStaff && len(variable.Relaxable) > 0 {
			added := s.fill(schedCtx, problem, variable, variable.Relaxable, shift.RequiredStaff-staffed, true, employeeHours, result)
			staffed += added
		}

		if staffed >= shift.RequiredStaff {
			result.Statistics.FilledShifts++
		}
	}

	// 最终覆盖缺口按实际分配计算
	result.Gaps = computeGaps(schedCtx, problem.Variables)
	result.ConstraintResult = problem.Manager.Evaluate(schedCtx)
	result.Duration = time.Since(startTime)
	result.Statistics.TotalAssignments = len(result.Assignments)
	result.Statistics.Iterations = iterations

	if result.Statistics.TotalShifts > 0 {
		result.Statistics.FillRate = float64(result.Statistics.FilledShifts) / float64(result.Statistics.TotalShifts) * 100
	}

	var totalHours float64
	activeEmployees := 0
	for _, h := range employeeHours {
		totalHours += h
		if h > 0 {
			activeEmployees++
		}
	}
	result.Statistics.TotalHours = totalHours
	if activeEmployees > 0 {
		result.Statistics.AvgHoursPerEmployee = totalHours / float64(activeEmployees)
	}

	s.finish(result, timedOut)

	coverage := result.Statistics.FillRate
	s.logger.SolveComplete(schedCtx.ScheduleID.String(), string(result.Status), result.Duration, coverage)

	return result, nil
}

// fill 从候选列表为班次填充至多 need 人，返回成功分配数
func (s *GreedySolver) fill(schedCtx *constraint.Context, problem *builder.Problem, variable *builder.Variable, candidates []*model.Employee, need int, relaxed bool, hours map[uuid.UUID]float64, result *Result) int {
	if need <= 0 || len(candidates) == 0 {
		return 0
	}

	shift := variable.Shift

	// 累计工时少的优先
	sorted := make([]*model.Employee, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return hours[sorted[i].ID] < hours[sorted[j].ID]
	})

	assigned := 0
	for _, emp := range sorted {
		if assigned >= need {
			break
		}

		// 已承接该班次的员工跳过
		if hasAssignment(schedCtx, shift.ID, emp.ID) {
			continue
		}

		assignment, err := newAssignment(schedCtx.ScheduleID, emp, shift, relaxed)
		if err != nil {
			continue
		}

		if canAssign, reason := problem.Manager.CanAssign(schedCtx, assignment); !canAssign {
			s.logger.ConstraintViolation("分配检查", fmt.Sprintf("员工 %s: %s", emp.Name, reason))
			continue
		}

		schedCtx.AddAssignment(assignment)
		result.Assignments = append(result.Assignments, assignment)
		hours[emp.ID] += assignment.WorkingHours()
		assigned++

		if relaxed {
			reason := fmt.Sprintf("班次 %s 常规候选不足，放宽资质要求", shift.Name)
			result.Relaxations = append(result.Relaxations, Relaxation{
				RuleType:   string(model.RuleSkillRequirement),
				ShiftID:    shift.ID,
				EmployeeID: emp.ID,
				Reason:     reason,
			})
			s.logger.RelaxationApplied(string(model.RuleSkillRequirement), reason)
		}
	}

	return assigned
}

// finish 确定求解状态与消息
func (s *GreedySolver) finish(result *Result, timedOut bool) {
	switch {
	case timedOut:
		result.Status = StatusTimeout
		result.Message = "时间预算耗尽，返回当前最优方案"
	case !result.ConstraintResult.IsValid:
		result.Status = StatusInfeasible
		result.Message = infeasibilityMessage(result.ConstraintResult.HardViolations)
	case len(result.Gaps) == 0 && len(result.Relaxations) == 0:
		result.Status = StatusOptimal
		result.Message = "全部班次排满"
	default:
		result.Status = StatusFeasible
		result.Message = fmt.Sprintf("排班可用，满足率 %.1f%%，存在 %d 个覆盖缺口", result.Statistics.FillRate, len(result.Gaps))
	}
}

// infeasibilityMessage 汇总导致不可行的硬约束
func infeasibilityMessage(violations []constraint.ViolationDetail) string {
	seen := make(map[string]struct{})
	var names []string
	for _, v := range violations {
		if _, ok := seen[v.ConstraintName]; ok {
			continue
		}
		seen[v.ConstraintName] = struct{}{}
		names = append(names, v.ConstraintName)
	}
	return fmt.Sprintf("存在 %d 个硬约束违反，冲突约束: %s", len(violations), strings.Join(names, "、"))
}

// computeGaps 依据当前分配计算覆盖缺口
func computeGaps(schedCtx *constraint.Context, variables []*builder.Variable) []*builder.CoverageGap {
	var gaps []*builder.CoverageGap
	for _, v := range variables {
		shift := v.Shift
		staffed := schedCtx.CountStaffed(shift.ID)
		if staffed < shift.RequiredStaff {
			gaps = append(gaps, &builder.CoverageGap{
				ShiftID:   shift.ID,
				ShiftName: shift.Name,
				Date:      shift.Date,
				Required:  shift.RequiredStaff,
				Eligible:  len(v.Eligible),
				Assigned:  staffed,
			})
		}
	}
	return gaps
}

// hasAssignment 员工是否已承接班次
func hasAssignment(schedCtx *constraint.Context, shiftID, empID uuid.UUID) bool {
	for _, a := range schedCtx.GetShiftAssignments(shiftID) {
		if a.EmployeeID == empID && a.Countable() {
			return true
		}
	}
	return false
}

// newAssignment 由班次构造分配
func newAssignment(scheduleID uuid.UUID, emp *model.Employee, shift *model.Shift, relaxed bool) (*model.Assignment, error) {
	interval, err := shift.Interval()
	if err != nil {
		return nil, err
	}

	return &model.Assignment{
		BaseModel:          model.NewBaseModel(),
		ScheduleID:         scheduleID,
		ShiftID:            shift.ID,
		EmployeeID:         emp.ID,
		Date:               shift.Date,
		StartTime:          interval.Start,
		EndTime:            interval.End,
		Status:             model.AssignmentStatusAssigned,
		AutoAssigned:       true,
		RequirementRelaxed: relaxed,
	}, nil
}
