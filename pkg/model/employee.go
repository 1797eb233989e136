// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"
)

// Employee 员工（求解期间的不可变快照）
type Employee struct {
	BaseModel
	Name       string `json:"name" db:"name"`
	Code       string `json:"code" db:"code"`
	Department string `json:"department,omitempty" db:"department"`
	Status     string `json:"status" db:"status"` // active/inactive

	// 资质与技能
	Qualifications   []string `json:"qualifications" db:"qualifications"`
	Skills           []string `json:"skills,omitempty" db:"skills"`
	ExperienceMonths int      `json:"experience_months" db:"experience_months"`

	// 工时上限（0 表示使用全局默认）
	MaxHoursPerWeek int `json:"max_hours_per_week" db:"max_hours_per_week"`

	// 每周可用性：星期 -> 有序且不重叠的时间段
	WeeklyAvailability map[time.Weekday][]AvailabilitySlot `json:"weekly_availability,omitempty" db:"weekly_availability"`

	// 工作偏好
	Preferences *EmployeePreferences `json:"preferences,omitempty" db:"preferences"`
}

// AvailabilitySlot 可用性时间段
type AvailabilitySlot struct {
	Start     string `json:"start"` // HH:MM
	End       string `json:"end"`   // HH:MM
	Available bool   `json:"available"`
}

// EmployeePreferences 员工偏好
type EmployeePreferences struct {
	PreferredShiftTypes []string       `json:"preferred_shift_types,omitempty"` // 偏好班次类型
	AvoidShiftTypes     []string       `json:"avoid_shift_types,omitempty"`     // 避免班次类型
	PreferredDays       []time.Weekday `json:"preferred_days,omitempty"`        // 偏好工作日
	AvoidDays           []time.Weekday `json:"avoid_days,omitempty"`            // 避免工作日
}

// IsActive 检查员工是否在职
func (e *Employee) IsActive() bool {
	return e.Status == "active"
}

// HasQualification 检查员工是否具备某资质
func (e *Employee) HasQualification(q string) bool {
	for _, item := range e.Qualifications {
		if item == q {
			return true
		}
	}
	return false
}

// HasSkill 检查员工是否具备某技能
func (e *Employee) HasSkill(skill string) bool {
	for _, s := range e.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// MeetsRequirements 检查员工是否满足班次的全部要求
// 资质与技能必须是需求集合的超集，经验月数不低于门槛
func (e *Employee) MeetsRequirements(req ShiftRequirements) bool {
	for _, q := range req.Qualifications {
		if !e.HasQualification(q) {
			return false
		}
	}
	for _, s := range req.Skills {
		if !e.HasSkill(s) {
			return false
		}
	}
	if req.MinExperienceMonths > 0 && e.ExperienceMonths < req.MinExperienceMonths {
		return false
	}
	return true
}

// AvailableOn 检查员工在指定星期的某个时段是否可用
//
// 未声明任何时间段的星期视为无限制（可用）。声明了时间段时，
// 目标时段必须完整落入某个 available 段内，且不得与任何
// unavailable 段相交。
func (e *Employee) AvailableOn(day time.Weekday, start, end string) bool {
	if e.WeeklyAvailability == nil {
		return true
	}
	slots, declared := e.WeeklyAvailability[day]
	if !declared || len(slots) == 0 {
		return true
	}

	covered := false
	for _, slot := range slots {
		if slot.Available {
			if slot.Start <= start && end <= slot.End {
				covered = true
			}
		} else {
			// 与不可用段相交即不可用
			if slot.Start < end && start < slot.End {
				return false
			}
		}
	}

	// 存在 available 声明时要求覆盖；只有 unavailable 声明时其余时段可用
	hasAvailableSlot := false
	for _, slot := range slots {
		if slot.Available {
			hasAvailableSlot = true
			break
		}
	}
	if !hasAvailableSlot {
		return true
	}
	return covered
}

// AvailableForInterval 检查员工是否可承接一个具体时间区间
// 跨午夜的区间按自然日拆分后逐段检查
func (e *Employee) AvailableForInterval(interval TimeRange) bool {
	segStart := interval.Start
	for segStart.Before(interval.End) {
		midnight := time.Date(segStart.Year(), segStart.Month(), segStart.Day(), 0, 0, 0, 0, segStart.Location()).AddDate(0, 0, 1)
		segEnd := interval.End
		if midnight.Before(segEnd) {
			segEnd = midnight
		}

		endClock := segEnd.Format(ClockFormat)
		if endClock == "00:00" {
			endClock = "24:00"
		}
		if !e.AvailableOn(segStart.Weekday(), segStart.Format(ClockFormat), endClock) {
			return false
		}
		segStart = segEnd
	}
	return true
}

// WeeklyCap 返回员工的周工时上限
func (e *Employee) WeeklyCap(globalDefault float64) float64 {
	if e.MaxHoursPerWeek > 0 {
		return float64(e.MaxHoursPerWeek)
	}
	return globalDefault
}
