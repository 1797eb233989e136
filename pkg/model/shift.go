package model

import (
	"fmt"
	"time"
)

// 班次类型
const (
	ShiftTypeDay     = "day"
	ShiftTypeEvening = "evening"
	ShiftTypeNight   = "night"
	ShiftTypeOnCall  = "on_call"
)

// Shift 班次：某个日期上的一个具体排班单元
type Shift struct {
	BaseModel
	Name      string `json:"name" db:"name"`
	Type      string `json:"type" db:"type"`
	Date      string `json:"date" db:"date"`             // YYYY-MM-DD
	StartTime string `json:"start_time" db:"start_time"` // HH:MM
	EndTime   string `json:"end_time" db:"end_time"`     // HH:MM，小于等于开始表示跨午夜
	Location  string `json:"location,omitempty" db:"location"`

	RequiredStaff int               `json:"required_staff" db:"required_staff"`
	Requirements  ShiftRequirements `json:"requirements" db:"requirements"`

	// 优先级 1-10，越大越重要
	Priority int `json:"priority" db:"priority"`

	// 是否为非社交时段班次（夜班、周末等，用于公平性统计）
	Unsocial bool `json:"unsocial" db:"unsocial"`
}

// ShiftRequirements 班次的人员要求
type ShiftRequirements struct {
	Qualifications      []string `json:"qualifications,omitempty"`
	Skills              []string `json:"skills,omitempty"`
	MinExperienceMonths int      `json:"min_experience_months,omitempty"`
}

// Validate 校验班次字段
func (s *Shift) Validate() error {
	if _, err := time.Parse(DateFormat, s.Date); err != nil {
		return fmt.Errorf("日期格式无效: %s", s.Date)
	}
	if _, err := time.Parse(ClockFormat, s.StartTime); err != nil {
		return fmt.Errorf("开始时间格式无效: %s", s.StartTime)
	}
	if _, err := time.Parse(ClockFormat, s.EndTime); err != nil {
		return fmt.Errorf("结束时间格式无效: %s", s.EndTime)
	}
	if s.RequiredStaff <= 0 {
		return fmt.Errorf("所需人数必须为正数: %d", s.RequiredStaff)
	}
	if s.Priority < 1 || s.Priority > 10 {
		return fmt.Errorf("优先级超出范围 [1,10]: %d", s.Priority)
	}
	return nil
}

// Overnight 班次是否跨午夜
func (s *Shift) Overnight() bool {
	return s.EndTime <= s.StartTime
}

// Interval 返回班次的具体时间区间，跨午夜班次结束于次日
func (s *Shift) Interval() (TimeRange, error) {
	date, err := time.Parse(DateFormat, s.Date)
	if err != nil {
		return TimeRange{}, fmt.Errorf("日期格式无效: %s", s.Date)
	}
	start, err := ClockOnDate(date, s.StartTime)
	if err != nil {
		return TimeRange{}, err
	}
	end, err := ClockOnDate(date, s.EndTime)
	if err != nil {
		return TimeRange{}, err
	}
	if s.Overnight() {
		end = end.AddDate(0, 0, 1)
	}
	return TimeRange{Start: start, End: end}, nil
}

// DurationHours 班次时长（小时）
func (s *Shift) DurationHours() float64 {
	iv, err := s.Interval()
	if err != nil {
		return 0
	}
	return iv.Duration().Hours()
}
