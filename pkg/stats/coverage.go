// Package stats 提供排班统计分析
package stats

import (
	"sort"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	TotalShifts     int     `json:"total_shifts"`     // 总班次数
	FilledShifts    int     `json:"filled_shifts"`    // 排满的班次数
	RequiredSlots   int     `json:"required_slots"`   // 需求人次
	FilledSlots     int     `json:"filled_slots"`     // 实际人次
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	DailyCoverage     map[string]DayCoverage `json:"daily_coverage"`      // 每日覆盖情况
	ShiftTypeCoverage map[string]float64     `json:"shift_type_coverage"` // 按班次类型覆盖率

	UncoveredShifts []UncoveredShift `json:"uncovered_shifts"` // 缺员班次
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date          string  `json:"date"`
	TotalShifts   int     `json:"total_shifts"`
	RequiredSlots int     `json:"required_slots"`
	FilledSlots   int     `json:"filled_slots"`
	CoverageRate  float64 `json:"coverage_rate"`
	TotalHours    float64 `json:"total_hours"`
}

// UncoveredShift 缺员班次
type UncoveredShift struct {
	ShiftID   uuid.UUID `json:"shift_id"`
	ShiftName string    `json:"shift_name"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Required  int       `json:"required"`
	Assigned  int       `json:"assigned"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 分析覆盖率
// 已拒绝和已取消的分配不计入
func (c *CoverageAnalyzer) Analyze(shifts []*model.Shift, assignments []*model.Assignment) *CoverageMetrics {
	metrics := &CoverageMetrics{
		DailyCoverage:     make(map[string]DayCoverage),
		ShiftTypeCoverage: make(map[string]float64),
	}

	if len(shifts) == 0 {
		metrics.OverallCoverage = 100
		return metrics
	}

	assignedByShift := make(map[uuid.UUID]int)
	hoursByShift := make(map[uuid.UUID]float64)
	for _, a := range assignments {
		if !a.Countable() {
			continue
		}
		assignedByShift[a.ShiftID]++
		hoursByShift[a.ShiftID] += a.WorkingHours()
	}

	typeRequired := make(map[string]int)
	typeFilled := make(map[string]int)

	for _, shift := range shifts {
		assigned := assignedByShift[shift.ID]
		filled := assigned
		if filled > shift.RequiredStaff {
			filled = shift.RequiredStaff
		}

		metrics.TotalShifts++
		metrics.RequiredSlots += shift.RequiredStaff
		metrics.FilledSlots += filled
		if assigned >= shift.RequiredStaff {
			metrics.FilledShifts++
		}

		typeRequired[shift.Type] += shift.RequiredStaff
		typeFilled[shift.Type] += filled

		day := metrics.DailyCoverage[shift.Date]
		day.Date = shift.Date
		day.TotalShifts++
		day.RequiredSlots += shift.RequiredStaff
		day.FilledSlots += filled
		day.TotalHours += hoursByShift[shift.ID]
		metrics.DailyCoverage[shift.Date] = day

		if assigned < shift.RequiredStaff {
			metrics.UncoveredShifts = append(metrics.UncoveredShifts, UncoveredShift{
				ShiftID:   shift.ID,
				ShiftName: shift.Name,
				Date:      shift.Date,
				StartTime: shift.StartTime,
				EndTime:   shift.EndTime,
				Required:  shift.RequiredStaff,
				Assigned:  assigned,
			})
		}
	}

	if metrics.RequiredSlots > 0 {
		metrics.OverallCoverage = float64(metrics.FilledSlots) / float64(metrics.RequiredSlots) * 100
	} else {
		metrics.OverallCoverage = 100
	}

	for date, day := range metrics.DailyCoverage {
		if day.RequiredSlots > 0 {
			day.CoverageRate = float64(day.FilledSlots) / float64(day.RequiredSlots) * 100
		} else {
			day.CoverageRate = 100
		}
		metrics.DailyCoverage[date] = day
	}

	for shiftType, required := range typeRequired {
		if required > 0 {
			metrics.ShiftTypeCoverage[shiftType] = float64(typeFilled[shiftType]) / float64(required) * 100
		}
	}

	sort.Slice(metrics.UncoveredShifts, func(i, j int) bool {
		if metrics.UncoveredShifts[i].Date != metrics.UncoveredShifts[j].Date {
			return metrics.UncoveredShifts[i].Date < metrics.UncoveredShifts[j].Date
		}
		return metrics.UncoveredShifts[i].StartTime < metrics.UncoveredShifts[j].StartTime
	})

	return metrics
}
