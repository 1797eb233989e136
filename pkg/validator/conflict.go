// Package validator 提供排班冲突检测
package validator

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictDoubleBooking ConflictType = "double_booking" // 时间重叠
	ConflictRestPeriod    ConflictType = "rest_period"    // 休息时间不足
	ConflictMaxHours      ConflictType = "max_hours"      // 超过最大工时
	ConflictQualification ConflictType = "qualification"  // 资质不匹配
	ConflictAvailability  ConflictType = "availability"   // 不可用时段
	ConflictBlockedShift  ConflictType = "blocked_shift"  // 禁排班次
)

// Conflict 冲突信息
type Conflict struct {
	Type        ConflictType `json:"type"`
	Severity    string       `json:"severity"` // error/warning
	EmployeeID  uuid.UUID    `json:"employee_id"`
	ShiftID     uuid.UUID    `json:"shift_id,omitempty"`
	Date        string       `json:"date"`
	Message     string       `json:"message"`
	Assignments []uuid.UUID  `json:"assignments,omitempty"` // 相关的排班ID
}

// Detector 冲突检测器
// 独立于求解器，直接校验上下文中已有的分配
type Detector struct {
	settings constraint.Settings
}

// NewDetector 创建冲突检测器
func NewDetector(settings constraint.Settings) *Detector {
	return &Detector{settings: settings}
}

// Detect 检测排班中的所有冲突
func (d *Detector) Detect(ctx *constraint.Context) []Conflict {
	conflicts := make([]Conflict, 0)

	for _, emp := range ctx.Employees {
		assignments := countable(ctx.GetEmployeeAssignments(emp.ID))
		if len(assignments) == 0 {
			continue
		}

		conflicts = append(conflicts, d.detectDoubleBookings(emp, assignments)...)
		conflicts = append(conflicts, d.detectRestViolations(ctx, emp, assignments)...)
		conflicts = append(conflicts, d.detectMaxHoursViolations(ctx, emp, assignments)...)

		for _, a := range assignments {
			shift := ctx.GetShift(a.ShiftID)
			if shift == nil {
				continue
			}
			conflicts = append(conflicts, d.checkQualification(ctx, emp, shift, a)...)
			conflicts = append(conflicts, d.checkAvailability(ctx, emp, shift, a)...)
			conflicts = append(conflicts, d.checkBlockedShift(ctx, emp, shift, a)...)
		}
	}

	return conflicts
}

// DetectForAssignment 检测新增分配会引入的冲突
// 用于换班和手工调整前的预检
func (d *Detector) DetectForAssignment(ctx *constraint.Context, candidate *model.Assignment) []Conflict {
	var conflicts []Conflict

	emp := ctx.GetEmployee(candidate.EmployeeID)
	if emp == nil {
		return conflicts
	}

	restRequired := d.restHoursFor(ctx, emp.ID)

	for _, existing := range countable(ctx.GetEmployeeAssignments(emp.ID)) {
		if existing.ID == candidate.ID {
			continue
		}

		if existing.Overlaps(candidate) {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictDoubleBooking,
				Severity:    "error",
				EmployeeID:  emp.ID,
				ShiftID:     candidate.ShiftID,
				Date:        candidate.Date,
				Message:     fmt.Sprintf("员工 %s 与现有排班时间重叠", emp.Name),
				Assignments: []uuid.UUID{candidate.ID, existing.ID},
			})
			continue
		}

		rest := restBetween(existing, candidate)
		if rest >= 0 && rest < restRequired {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictRestPeriod,
				Severity:    "error",
				EmployeeID:  emp.ID,
				ShiftID:     candidate.ShiftID,
				Date:        candidate.Date,
				Message:     fmt.Sprintf("员工 %s 班次间休息仅 %.1f 小时，少于要求的 %.1f 小时", emp.Name, rest, restRequired),
				Assignments: []uuid.UUID{candidate.ID, existing.ID},
			})
		}
	}

	// 新分配计入后的周工时
	cap := d.weeklyCapFor(ctx, emp)
	weekStart, weekEnd := constraint.WeekBounds(candidate.Date)
	hours := ctx.GetEmployeeHoursInRange(emp.ID, weekStart, weekEnd) + candidate.WorkingHours()
	if hours > cap {
		conflicts = append(conflicts, Conflict{
			Type:       ConflictMaxHours,
			Severity:   "error",
			EmployeeID: emp.ID,
			ShiftID:    candidate.ShiftID,
			Date:       candidate.Date,
			Message:    fmt.Sprintf("员工 %s 周工时将达 %.1f 小时，超过上限 %.1f 小时", emp.Name, hours, cap),
		})
	}

	if shift := ctx.GetShift(candidate.ShiftID); shift != nil {
		conflicts = append(conflicts, d.checkQualification(ctx, emp, shift, candidate)...)
		conflicts = append(conflicts, d.checkAvailability(ctx, emp, shift, candidate)...)
		conflicts = append(conflicts, d.checkBlockedShift(ctx, emp, shift, candidate)...)
	}

	return conflicts
}

// detectDoubleBookings 检测同一员工的时间重叠
func (d *Detector) detectDoubleBookings(emp *model.Employee, assignments []*model.Assignment) []Conflict {
	var conflicts []Conflict

	sorted := sortedByStart(assignments)
	for i := 0; i < len(sorted)-1; i++ {
		current, next := sorted[i], sorted[i+1]
		if current.Overlaps(next) {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictDoubleBooking,
				Severity:    "error",
				EmployeeID:  emp.ID,
				Date:        current.Date,
				Message:     fmt.Sprintf("员工 %s 在 %s 存在时间重叠的排班", emp.Name, current.Date),
				Assignments: []uuid.UUID{current.ID, next.ID},
			})
		}
	}

	return conflicts
}

// detectRestViolations 检测班次间休息不足
func (d *Detector) detectRestViolations(ctx *constraint.Context, emp *model.Employee, assignments []*model.Assignment) []Conflict {
	var conflicts []Conflict
	if len(assignments) < 2 {
		return conflicts
	}

	required := d.restHoursFor(ctx, emp.ID)

	sorted := make([]*model.Assignment, len(assignments))
	copy(sorted, assignments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].EndTime.Before(sorted[j].EndTime)
	})

	for i := 0; i < len(sorted)-1; i++ {
		current, next := sorted[i], sorted[i+1]

		rest := next.StartTime.Sub(current.EndTime).Hours()
		if rest >= 0 && rest < required {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictRestPeriod,
				Severity:    "error",
				EmployeeID:  emp.ID,
				Date:        next.Date,
				Message:     fmt.Sprintf("员工 %s 班次间休息仅 %.1f 小时，少于要求的 %.1f 小时", emp.Name, rest, required),
				Assignments: []uuid.UUID{current.ID, next.ID},
			})
		}
	}

	return conflicts
}

// detectMaxHoursViolations 检测周工时超限
func (d *Detector) detectMaxHoursViolations(ctx *constraint.Context, emp *model.Employee, assignments []*model.Assignment) []Conflict {
	var conflicts []Conflict

	cap := d.weeklyCapFor(ctx, emp)

	weeklyHours := make(map[string]float64)
	for _, a := range assignments {
		weekStart, _ := constraint.WeekBounds(a.Date)
		weeklyHours[weekStart] += a.WorkingHours()
	}

	weeks := make([]string, 0, len(weeklyHours))
	for week := range weeklyHours {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)

	for _, week := range weeks {
		if weeklyHours[week] > cap {
			conflicts = append(conflicts, Conflict{
				Type:       ConflictMaxHours,
				Severity:   "error",
				EmployeeID: emp.ID,
				Date:       week,
				Message:    fmt.Sprintf("员工 %s 本周工作 %.1f 小时，超过上限 %.1f 小时", emp.Name, weeklyHours[week], cap),
			})
		}
	}

	return conflicts
}

// checkQualification 检查资质与技能要求
// 放宽的分配降级为警告
func (d *Detector) checkQualification(ctx *constraint.Context, emp *model.Employee, shift *model.Shift, a *model.Assignment) []Conflict {
	var conflicts []Conflict

	meets := emp.MeetsRequirements(shift.Requirements)
	if meets {
	rules:
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
					meets = false
					break rules
				}
			}
			for _, s := range params.Skills {
				if !emp.HasSkill(s) {
					meets = false
					break rules
				}
			}
		}
	}

	if meets {
		return conflicts
	}

	severity := "error"
	message := fmt.Sprintf("员工 %s 不满足班次 %s 的资质要求", emp.Name, shift.Name)
	if a.RequirementRelaxed {
		severity = "warning"
		message = fmt.Sprintf("员工 %s 以放宽资质承接班次 %s", emp.Name, shift.Name)
	}

	conflicts = append(conflicts, Conflict{
		Type:        ConflictQualification,
		Severity:    severity,
		EmployeeID:  emp.ID,
		ShiftID:     shift.ID,
		Date:        a.Date,
		Message:     message,
		Assignments: []uuid.UUID{a.ID},
	})

	return conflicts
}

// checkAvailability 检查可用性，覆盖规则优先于每周声明
func (d *Detector) checkAvailability(ctx *constraint.Context, emp *model.Employee, shift *model.Shift, a *model.Assignment) []Conflict {
	var conflicts []Conflict

	if !availableFor(ctx, emp, a) {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictAvailability,
			Severity:    "error",
			EmployeeID:  emp.ID,
			ShiftID:     shift.ID,
			Date:        a.Date,
			Message:     fmt.Sprintf("员工 %s 在 %s 的班次时段不可用", emp.Name, a.Date),
			Assignments: []uuid.UUID{a.ID},
		})
	}

	return conflicts
}

// checkBlockedShift 检查硬性禁排规则
func (d *Detector) checkBlockedShift(ctx *constraint.Context, emp *model.Employee, shift *model.Shift, a *model.Assignment) []Conflict {
	var conflicts []Conflict

	for _, r := range ctx.RulesFor(model.RuleBlockedShift, emp.ID) {
		if !r.Hard(ctx.Settings.HardOverrideThreshold) {
			continue
		}
		params, ok := r.Params.(*model.ShiftSelectorParams)
		if !ok || !params.Matches(shift) {
			continue
		}

		conflicts = append(conflicts, Conflict{
			Type:        ConflictBlockedShift,
			Severity:    "error",
			EmployeeID:  emp.ID,
			ShiftID:     shift.ID,
			Date:        a.Date,
			Message:     fmt.Sprintf("员工 %s 被禁排班次 %s", emp.Name, shift.Name),
			Assignments: []uuid.UUID{a.ID},
		})
	}

	return conflicts
}

// restHoursFor 员工的最小休息时间，规则可收紧默认值
func (d *Detector) restHoursFor(ctx *constraint.Context, empID uuid.UUID) float64 {
	required := d.settings.DefaultMinRestHours
	for _, r := range ctx.RulesFor(model.RuleRestPeriod, empID) {
		if params, ok := r.Params.(*model.RestPeriodParams); ok && params.MinRestHours > required {
			required = params.MinRestHours
		}
	}
	return required
}

// weeklyCapFor 员工的周工时上限，取员工上限与规则中的最小值
func (d *Detector) weeklyCapFor(ctx *constraint.Context, emp *model.Employee) float64 {
	cap := emp.WeeklyCap(d.settings.DefaultMaxWeeklyHours)
	for _, r := range ctx.RulesFor(model.RuleMaxHours, emp.ID) {
		if params, ok := r.Params.(*model.MaxHoursParams); ok && params.HoursPerWeek < cap {
			cap = params.HoursPerWeek
		}
	}
	return cap
}

// availableFor 分配是否落入员工的可用时段
// 覆盖规则优先于每周声明，跨午夜分配按自然日拆分检查
func availableFor(ctx *constraint.Context, emp *model.Employee, a *model.Assignment) bool {
	segStart := a.StartTime
	for segStart.Before(a.EndTime) {
		midnight := time.Date(segStart.Year(), segStart.Month(), segStart.Day(), 0, 0, 0, 0, segStart.Location()).AddDate(0, 0, 1)
		segEnd := a.EndTime
		if midnight.Before(segEnd) {
			segEnd = midnight
		}

		date := segStart.Format(model.DateFormat)
		startClock := segStart.Format(model.ClockFormat)
		endClock := segEnd.Format(model.ClockFormat)
		if endClock == "00:00" {
			endClock = "24:00"
		}

		if slots, overridden := ctx.AvailabilityFor(emp.ID, date); overridden {
			if !slotsAllow(slots, startClock, endClock) {
				return false
			}
		} else if !emp.AvailableOn(segStart.Weekday(), startClock, endClock) {
			return false
		}

		segStart = segEnd
	}

	return true
}

// slotsAllow 时段声明是否允许指定区间
// available 段须覆盖，unavailable 段不得相交
func slotsAllow(slots []model.AvailabilitySlot, start, end string) bool {
	covered := false
	hasAvailable := false
	for _, slot := range slots {
		if slot.Available {
			hasAvailable = true
			if slot.Start <= start && end <= slot.End {
				covered = true
			}
		} else if slot.Start < end && start < slot.End {
			return false
		}
	}
	if !hasAvailable {
		return true
	}
	return covered
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

// restBetween 两个分配之间的休息时间，重叠返回 -1
func restBetween(a1, a2 *model.Assignment) float64 {
	if !a1.EndTime.After(a2.StartTime) {
		return a2.StartTime.Sub(a1.EndTime).Hours()
	}
	if !a2.EndTime.After(a1.StartTime) {
		return a1.StartTime.Sub(a2.EndTime).Hours()
	}
	return -1
}

// sortedByStart 按开始时间排序的副本
func sortedByStart(assignments []*model.Assignment) []*model.Assignment {
	sorted := make([]*model.Assignment, len(assignments))
	copy(sorted, assignments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})
	return sorted
}

// countable 过滤掉已拒绝或已取消的分配
func countable(assignments []*model.Assignment) []*model.Assignment {
	result := make([]*model.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.Countable() {
			result = append(result, a)
		}
	}
	return result
}
