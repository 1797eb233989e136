// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateFormat 日期格式 YYYY-MM-DD
const DateFormat = "2006-01-02"

// ClockFormat 时刻格式 HH:MM
const ClockFormat = "15:04"

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JSONMap 用于存储 JSONB 数据
type JSONMap map[string]interface{}

// TimeRange 时间范围
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps 检查两个时间范围是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// DateRange 日期范围（排班周期）
type DateRange struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
}

// Validate 检查日期范围合法性
func (dr DateRange) Validate() error {
	start, err := time.Parse(DateFormat, dr.StartDate)
	if err != nil {
		return fmt.Errorf("起始日期格式无效: %s", dr.StartDate)
	}
	end, err := time.Parse(DateFormat, dr.EndDate)
	if err != nil {
		return fmt.Errorf("结束日期格式无效: %s", dr.EndDate)
	}
	if end.Before(start) {
		return fmt.Errorf("结束日期 %s 早于起始日期 %s", dr.EndDate, dr.StartDate)
	}
	return nil
}

// Days 返回日期范围的天数（含首尾）
func (dr DateRange) Days() int {
	start, err1 := time.Parse(DateFormat, dr.StartDate)
	end, err2 := time.Parse(DateFormat, dr.EndDate)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Contains 检查日期是否落在范围内
func (dr DateRange) Contains(date string) bool {
	return date >= dr.StartDate && date <= dr.EndDate
}

// Weekday 返回日期字符串对应的星期
func Weekday(date string) (time.Weekday, error) {
	t, err := time.Parse(DateFormat, date)
	if err != nil {
		return time.Sunday, fmt.Errorf("日期格式无效: %s", date)
	}
	return t.Weekday(), nil
}

// ClockOnDate 在指定日期解析 HH:MM 时刻
func ClockOnDate(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(ClockFormat, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("时刻格式无效: %s", clock)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// NextDate 获取后一天日期
func NextDate(date string) string {
	t, err := time.Parse(DateFormat, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format(DateFormat)
}

// PreviousDate 获取前一天日期
func PreviousDate(date string) string {
	t, err := time.Parse(DateFormat, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(DateFormat)
}
