package stats

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	WorkloadGini        float64 `json:"workload_gini"`          // 工时基尼系数 (0=完全公平, 1=完全不公平)
	WorkloadVariance    float64 `json:"workload_variance"`      // 工时方差
	WorkloadStdDev      float64 `json:"workload_std_dev"`       // 工时标准差
	AvgHoursPerEmployee float64 `json:"avg_hours_per_employee"` // 人均工时
	MaxHours            float64 `json:"max_hours"`              // 最大工时
	MinHours            float64 `json:"min_hours"`              // 最小工时
	HoursRange          float64 `json:"hours_range"`            // 工时极差

	UnsocialGini float64 `json:"unsocial_gini"` // 非社交班次分配基尼系数
	WeekendGini  float64 `json:"weekend_gini"`  // 周末班分配基尼系数

	EmployeeStats []EmployeeStat `json:"employee_stats"` // 员工统计

	OverallFairnessScore float64 `json:"overall_fairness_score"` // 综合公平性评分 (0-100)
}

// EmployeeStat 员工统计
type EmployeeStat struct {
	EmployeeID     uuid.UUID `json:"employee_id"`
	EmployeeName   string    `json:"employee_name"`
	TotalHours     float64   `json:"total_hours"`
	ShiftCount     int       `json:"shift_count"`
	UnsocialShifts int       `json:"unsocial_shifts"`
	WeekendShifts  int       `json:"weekend_shifts"`
	OvertimeHours  float64   `json:"overtime_hours"`
	Deviation      float64   `json:"deviation"` // 与平均工时的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct {
	standardWeeklyHours float64
}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer(standardWeeklyHours float64) *FairnessAnalyzer {
	if standardWeeklyHours <= 0 {
		standardWeeklyHours = 40
	}
	return &FairnessAnalyzer{standardWeeklyHours: standardWeeklyHours}
}

// Analyze 分析排班公平性
func (f *FairnessAnalyzer) Analyze(assignments []*model.Assignment, employees []*model.Employee, shifts []*model.Shift) *FairnessMetrics {
	if len(assignments) == 0 || len(employees) == 0 {
		return &FairnessMetrics{OverallFairnessScore: 100}
	}

	shiftMap := make(map[uuid.UUID]*model.Shift, len(shifts))
	for _, s := range shifts {
		shiftMap[s.ID] = s
	}

	employeeStats := f.calculateEmployeeStats(assignments, employees, shiftMap)

	hours := make([]float64, len(employeeStats))
	unsocial := make([]float64, len(employeeStats))
	weekend := make([]float64, len(employeeStats))
	for i, stat := range employeeStats {
		hours[i] = stat.TotalHours
		unsocial[i] = float64(stat.UnsocialShifts)
		weekend[i] = float64(stat.WeekendShifts)
	}

	avgHours := mean(hours)
	variance := varianceOf(hours, avgHours)
	stdDev := math.Sqrt(variance)
	maxHours, minHours := rangeOf(hours)

	for i := range employeeStats {
		if avgHours > 0 {
			employeeStats[i].Deviation = (employeeStats[i].TotalHours - avgHours) / avgHours * 100
		}
	}

	workloadGini := gini(hours)
	unsocialGini := gini(unsocial)
	weekendGini := gini(weekend)

	return &FairnessMetrics{
		WorkloadGini:         workloadGini,
		WorkloadVariance:     variance,
		WorkloadStdDev:       stdDev,
		AvgHoursPerEmployee:  avgHours,
		MaxHours:             maxHours,
		MinHours:             minHours,
		HoursRange:           maxHours - minHours,
		UnsocialGini:         unsocialGini,
		WeekendGini:          weekendGini,
		EmployeeStats:        employeeStats,
		OverallFairnessScore: f.overallScore(workloadGini, unsocialGini, weekendGini, stdDev, avgHours),
	}
}

// calculateEmployeeStats 计算员工统计数据
// 只统计有效分配，未参与排班的员工也计入以反映分配不均
func (f *FairnessAnalyzer) calculateEmployeeStats(assignments []*model.Assignment, employees []*model.Employee, shiftMap map[uuid.UUID]*model.Shift) []EmployeeStat {
	statMap := make(map[uuid.UUID]*EmployeeStat, len(employees))
	for _, emp := range employees {
		statMap[emp.ID] = &EmployeeStat{
			EmployeeID:   emp.ID,
			EmployeeName: emp.Name,
		}
	}

	for _, a := range assignments {
		if !a.Countable() {
			continue
		}
		stat, ok := statMap[a.EmployeeID]
		if !ok {
			continue
		}

		hours := a.WorkingHours()
		stat.TotalHours += hours
		stat.ShiftCount++

		if shift, ok := shiftMap[a.ShiftID]; ok {
			if shift.Unsocial || shift.Type == model.ShiftTypeNight {
				stat.UnsocialShifts++
			}
		}
		if isWeekend(a.Date) {
			stat.WeekendShifts++
		}
	}

	result := make([]EmployeeStat, 0, len(statMap))
	for _, stat := range statMap {
		if stat.TotalHours > f.standardWeeklyHours {
			stat.OvertimeHours = stat.TotalHours - f.standardWeeklyHours
		}
		result = append(result, *stat)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TotalHours > result[j].TotalHours
	})

	return result
}

// overallScore 计算综合公平性评分
func (f *FairnessAnalyzer) overallScore(workloadGini, unsocialGini, weekendGini, stdDev, avgHours float64) float64 {
	const (
		workloadWeight = 0.4
		unsocialWeight = 0.25
		weekendWeight  = 0.25
		stdDevWeight   = 0.1
	)

	workloadScore := (1 - workloadGini) * 100
	unsocialScore := (1 - unsocialGini) * 100
	weekendScore := (1 - weekendGini) * 100

	// 变异系数越低分数越高
	cvScore := 100.0
	if avgHours > 0 {
		cv := stdDev / avgHours
		cvScore = math.Max(0, 100-cv*200)
	}

	score := workloadWeight*workloadScore +
		unsocialWeight*unsocialScore +
		weekendWeight*weekendScore +
		stdDevWeight*cvScore

	return math.Max(0, math.Min(100, score))
}

// isWeekend 判断是否是周末
func isWeekend(date string) bool {
	weekday, err := model.Weekday(date)
	if err != nil {
		return false
	}
	return weekday == time.Saturday || weekday == time.Sunday
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// varianceOf 计算方差
func varianceOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// rangeOf 计算极值
func rangeOf(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}

	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
