// Package builder 将员工、班次与规则展开为求解问题
package builder

import (
	"sort"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/logger"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint/builtin"
)

// Variable 分配变量：一个班次及其可承接的候选员工
type Variable struct {
	Shift     *model.Shift      `json:"shift"`
	Eligible  []*model.Employee `json:"eligible"`
	Relaxable []*model.Employee `json:"relaxable,omitempty"` // 放宽资质后可承接的员工
}

// CoverageGap 结构性覆盖缺口
// 候选人数少于班次所需人数时在构建阶段即可判定
type CoverageGap struct {
	ShiftID   uuid.UUID `json:"shift_id"`
	ShiftName string    `json:"shift_name"`
	Date      string    `json:"date"`
	Required  int       `json:"required"`
	Eligible  int       `json:"eligible"`
	Assigned  int       `json:"assigned"`
}

// Problem 构建完成的求解问题
type Problem struct {
	Context   *constraint.Context `json:"-"`
	Manager   *constraint.Manager `json:"-"`
	Variables []*Variable         `json:"variables"`
	Gaps      []*CoverageGap      `json:"gaps"`

	// 求解开始前已存在且不可移动的分配
	Pinned []*model.Assignment `json:"pinned,omitempty"`
}

// Builder 约束构建器
type Builder struct {
	settings constraint.Settings
	logger   *logger.EngineLogger
}

// New 创建约束构建器
func New(settings constraint.Settings) *Builder {
	return &Builder{
		settings: settings,
		logger:   logger.NewEngineLogger(),
	}
}

// Build 构建求解问题
//
// 对每个班次预筛候选员工（资质、技能、经验、可用性）。
// 某个班次一个候选都没有时立即失败；候选不足所需人数时
// 记录缺口并继续，欠覆盖由软约束计罚
func (b *Builder) Build(scheduleID uuid.UUID, snapshot *Snapshot) (*Problem, error) {
	if len(snapshot.Employees) == 0 || len(snapshot.Shifts) == 0 {
		return nil, errors.New(errors.CodeEmptyInput, "没有员工或班次可供排班")
	}

	ctx := constraint.NewContext(scheduleID, snapshot.StartDate, snapshot.EndDate)
	ctx.Settings = b.settings
	ctx.SetEmployees(activeEmployees(snapshot.Employees))
	ctx.SetShifts(snapshot.Shifts)
	ctx.SetRules(snapshot.Rules)

	if len(ctx.Employees) == 0 {
		return nil, errors.New(errors.CodeEmptyInput, "没有在职员工可供排班")
	}

	manager := constraint.NewManager()
	builtin.RegisterAll(manager, b.settings)

	problem := &Problem{
		Context:   ctx,
		Manager:   manager,
		Variables: make([]*Variable, 0, len(ctx.Shifts)),
		Gaps:      make([]*CoverageGap, 0),
	}

	for _, shift := range ctx.Shifts {
		if err := shift.Validate(); err != nil {
			return nil, errors.InvalidInput("shift", err.Error()).WithField("shift_id", shift.ID.String())
		}

		variable := &Variable{Shift: shift}
		for _, emp := range ctx.Employees {
			switch {
			case b.eligible(ctx, emp, shift, false):
				variable.Eligible = append(variable.Eligible, emp)
			case b.eligible(ctx, emp, shift, true):
				variable.Relaxable = append(variable.Relaxable, emp)
			}
		}

		// 一个候选都没有：快速失败，附带具体班次信息
		if len(variable.Eligible) == 0 && len(variable.Relaxable) == 0 {
			return nil, errors.NoEligibleEmployees(shift.ID.String(), shift.Date, shift.RequiredStaff)
		}

		if len(variable.Eligible) < shift.RequiredStaff {
			problem.Gaps = append(problem.Gaps, &CoverageGap{
				ShiftID:   shift.ID,
				ShiftName: shift.Name,
				Date:      shift.Date,
				Required:  shift.RequiredStaff,
				Eligible:  len(variable.Eligible),
			})
		}

		problem.Variables = append(problem.Variables, variable)
	}

	// 已锁定的分配保持不动并预置进上下文
	for _, a := range snapshot.Assignments {
		if a.Pinned() {
			problem.Pinned = append(problem.Pinned, a)
			ctx.AddAssignment(a)
		}
	}

	// 按优先级降序、日期升序排列变量，求解器按此顺序填充
	sort.SliceStable(problem.Variables, func(i, j int) bool {
		si, sj := problem.Variables[i].Shift, problem.Variables[j].Shift
		if si.Priority != sj.Priority {
			return si.Priority > sj.Priority
		}
		return si.Date < sj.Date
	})

	return problem, nil
}

// eligible 员工能否承接班次
// relaxed 为 true 时跳过资质/技能/经验检查
func (b *Builder) eligible(ctx *constraint.Context, emp *model.Employee, shift *model.Shift, relaxed bool) bool {
	if !relaxed && !emp.MeetsRequirements(shift.Requirements) {
		return false
	}

	interval, err := shift.Interval()
	if err != nil {
		return false
	}

	// 覆盖规则优先于每周声明
	if slots, overridden := ctx.AvailabilityFor(emp.ID, shift.Date); overridden {
		if !overrideAllows(slots, shift) {
			return false
		}
	} else if !emp.AvailableForInterval(interval) {
		return false
	}

	// 硬性禁止规则直接剔除候选
	for _, r := range ctx.RulesFor(model.RuleBlockedShift, emp.ID) {
		if !r.Hard(ctx.Settings.HardOverrideThreshold) {
			continue
		}
		if params, ok := r.Params.(*model.ShiftSelectorParams); ok && params.Matches(shift) {
			return false
		}
	}

	return true
}

// overrideAllows 覆盖时段是否允许班次的当日段
func overrideAllows(slots []model.AvailabilitySlot, shift *model.Shift) bool {
	endClock := shift.EndTime
	if shift.Overnight() {
		endClock = "24:00"
	}

	covered := false
	hasAvailable := false
	for _, slot := range slots {
		if slot.Available {
			hasAvailable = true
			if slot.Start <= shift.StartTime && endClock <= slot.End {
				covered = true
			}
		} else if slot.Start < endClock && shift.StartTime < slot.End {
			return false
		}
	}
	if !hasAvailable {
		return true
	}
	return covered
}

// activeEmployees 过滤出在职员工
func activeEmployees(employees []*model.Employee) []*model.Employee {
	result := make([]*model.Employee, 0, len(employees))
	for _, emp := range employees {
		if emp.IsActive() {
			result = append(result, emp)
		}
	}
	return result
}
