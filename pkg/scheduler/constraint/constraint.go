// Package constraint 定义约束接口和管理器
package constraint

import (
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeNoDoubleBooking  Type = "no_double_booking"
	TypeAvailability     Type = "availability"
	TypeMinRest          Type = "min_rest_between_shifts"
	TypeMaxHoursPerWeek  Type = "max_hours_per_week"
	TypeQualification    Type = "qualification"
	TypeBlockedShiftHard Type = "blocked_shift_hard"

	// 软约束类型
	TypeCoverage         Type = "coverage"
	TypeMinHoursPerWeek  Type = "min_hours_per_week"
	TypePreferredShift   Type = "preferred_shift"
	TypeBlockedShift     Type = "blocked_shift"
	TypeWorkloadBalance  Type = "workload_balance"
	TypeUnsocialFairness Type = "unsocial_fairness"
	TypeCustomRule       Type = "custom_rule"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Weight 返回约束权重 (1-100)
	Weight() int

	// Evaluate 评估整个排班方案
	// 返回：是否满足、惩罚值、违反详情
	Evaluate(ctx *Context) (valid bool, penalty int, details []ViolationDetail)

	// EvaluateAssignment 评估单个分配
	// 返回：是否满足、惩罚值
	EvaluateAssignment(ctx *Context, assignment *model.Assignment) (valid bool, penalty int)
}

// ViolationDetail 约束违反详情
type ViolationDetail struct {
	ConstraintType Type      `json:"constraint_type"`
	ConstraintName string    `json:"constraint_name"`
	EmployeeID     uuid.UUID `json:"employee_id,omitempty"`
	ShiftID        uuid.UUID `json:"shift_id,omitempty"`
	Date           string    `json:"date,omitempty"`
	Message        string    `json:"message"`
	Severity       string    `json:"severity"` // error/warning
	Penalty        int       `json:"penalty"`
}

// Settings 约束评估的全局参数
type Settings struct {
	DefaultMaxWeeklyHours float64 // 员工未单独设置时的周工时上限
	DefaultMinRestHours   float64 // 未配置休息规则时的默认最小休息
	HardOverrideThreshold int     // 软规则升级为硬约束的优先级阈值
	StandardWeeklyHours   float64 // 公平性统计的基准周工时
}

// DefaultSettings 默认评估参数
func DefaultSettings() Settings {
	return Settings{
		DefaultMaxWeeklyHours: 40,
		DefaultMinRestHours:   11,
		HardOverrideThreshold: 8,
		StandardWeeklyHours:   40,
	}
}

// Context 排班上下文
type Context struct {
	// 输入数据
	ScheduleID uuid.UUID         `json:"schedule_id"`
	StartDate  string            `json:"start_date"`
	EndDate    string            `json:"end_date"`
	Employees  []*model.Employee `json:"employees"`
	Shifts     []*model.Shift    `json:"shifts"`
	Rules      []*model.Rule     `json:"rules"`

	// 当前排班结果
	Assignments []*model.Assignment `json:"assignments"`

	// 评估参数
	Settings Settings `json:"settings"`

	// 索引缓存
	employeeMap        map[uuid.UUID]*model.Employee
	shiftMap           map[uuid.UUID]*model.Shift
	assignmentsByEmp   map[uuid.UUID][]*model.Assignment
	assignmentsByDate  map[string][]*model.Assignment
	assignmentsByShift map[uuid.UUID][]*model.Assignment

	// 可用性覆盖索引：员工 -> 日期 -> 时间段
	// uuid.Nil 键表示对全员生效的覆盖
	availabilityOverrides map[uuid.UUID]map[string][]model.AvailabilitySlot
}

// NewContext 创建新的排班上下文
func NewContext(scheduleID uuid.UUID, startDate, endDate string) *Context {
	return &Context{
		ScheduleID:            scheduleID,
		StartDate:             startDate,
		EndDate:               endDate,
		Employees:             make([]*model.Employee, 0),
		Shifts:                make([]*model.Shift, 0),
		Rules:                 make([]*model.Rule, 0),
		Assignments:           make([]*model.Assignment, 0),
		Settings:              DefaultSettings(),
		employeeMap:           make(map[uuid.UUID]*model.Employee),
		shiftMap:              make(map[uuid.UUID]*model.Shift),
		assignmentsByEmp:      make(map[uuid.UUID][]*model.Assignment),
		assignmentsByDate:     make(map[string][]*model.Assignment),
		assignmentsByShift:    make(map[uuid.UUID][]*model.Assignment),
		availabilityOverrides: make(map[uuid.UUID]map[string][]model.AvailabilitySlot),
	}
}

// SetEmployees 设置员工列表
func (c *Context) SetEmployees(employees []*model.Employee) {
	c.Employees = employees
	c.employeeMap = make(map[uuid.UUID]*model.Employee)
	for _, e := range employees {
		c.employeeMap[e.ID] = e
	}
}

// SetShifts 设置班次列表
func (c *Context) SetShifts(shifts []*model.Shift) {
	c.Shifts = shifts
	c.shiftMap = make(map[uuid.UUID]*model.Shift)
	for _, s := range shifts {
		c.shiftMap[s.ID] = s
	}
}

// SetRules 设置规则列表并建立可用性覆盖索引
func (c *Context) SetRules(rules []*model.Rule) {
	c.Rules = rules
	c.availabilityOverrides = make(map[uuid.UUID]map[string][]model.AvailabilitySlot)
	for _, r := range rules {
		if !r.Active || r.Type != model.RuleAvailabilityOverride {
			continue
		}
		params, ok := r.Params.(*model.AvailabilityOverrideParams)
		if !ok {
			continue
		}
		key := uuid.Nil
		if r.EmployeeID != nil {
			key = *r.EmployeeID
		}
		if c.availabilityOverrides[key] == nil {
			c.availabilityOverrides[key] = make(map[string][]model.AvailabilitySlot)
		}
		c.availabilityOverrides[key][params.Date] = append(c.availabilityOverrides[key][params.Date], params.Slots...)
	}
}

// SetAssignments 设置排班分配
func (c *Context) SetAssignments(assignments []*model.Assignment) {
	c.Assignments = assignments
	c.rebuildAssignmentIndexes()
}

// AddAssignment 添加排班分配
func (c *Context) AddAssignment(a *model.Assignment) {
	c.Assignments = append(c.Assignments, a)
	c.assignmentsByEmp[a.EmployeeID] = append(c.assignmentsByEmp[a.EmployeeID], a)
	c.assignmentsByDate[a.Date] = append(c.assignmentsByDate[a.Date], a)
	c.assignmentsByShift[a.ShiftID] = append(c.assignmentsByShift[a.ShiftID], a)
}

// RemoveAssignment 移除排班分配
func (c *Context) RemoveAssignment(id uuid.UUID) {
	for i, a := range c.Assignments {
		if a.ID == id {
			c.Assignments = append(c.Assignments[:i], c.Assignments[i+1:]...)
			break
		}
	}
	c.rebuildAssignmentIndexes()
}

// rebuildAssignmentIndexes 重建分配索引
func (c *Context) rebuildAssignmentIndexes() {
	c.assignmentsByEmp = make(map[uuid.UUID][]*model.Assignment)
	c.assignmentsByDate = make(map[string][]*model.Assignment)
	c.assignmentsByShift = make(map[uuid.UUID][]*model.Assignment)
	for _, a := range c.Assignments {
		c.assignmentsByEmp[a.EmployeeID] = append(c.assignmentsByEmp[a.EmployeeID], a)
		c.assignmentsByDate[a.Date] = append(c.assignmentsByDate[a.Date], a)
		c.assignmentsByShift[a.ShiftID] = append(c.assignmentsByShift[a.ShiftID], a)
	}
}

// GetEmployee 获取员工
func (c *Context) GetEmployee(id uuid.UUID) *model.Employee {
	return c.employeeMap[id]
}

// GetShift 获取班次
func (c *Context) GetShift(id uuid.UUID) *model.Shift {
	return c.shiftMap[id]
}

// GetEmployeeAssignments 获取员工的所有排班
func (c *Context) GetEmployeeAssignments(empID uuid.UUID) []*model.Assignment {
	return c.assignmentsByEmp[empID]
}

// GetDateAssignments 获取某日期的所有排班
func (c *Context) GetDateAssignments(date string) []*model.Assignment {
	return c.assignmentsByDate[date]
}

// GetShiftAssignments 获取某班次的所有排班
func (c *Context) GetShiftAssignments(shiftID uuid.UUID) []*model.Assignment {
	return c.assignmentsByShift[shiftID]
}

// CountStaffed 获取班次已分配且计入覆盖的人数
func (c *Context) CountStaffed(shiftID uuid.UUID) int {
	count := 0
	for _, a := range c.assignmentsByShift[shiftID] {
		if a.Countable() {
			count++
		}
	}
	return count
}

// GetEmployeeHoursInWeek 获取员工在某日期所在周（周一起算）的工作时长
func (c *Context) GetEmployeeHoursInWeek(empID uuid.UUID, date string) float64 {
	weekStart, weekEnd := WeekBounds(date)
	var hours float64
	for _, a := range c.assignmentsByEmp[empID] {
		if a.Countable() && a.Date >= weekStart && a.Date <= weekEnd {
			hours += a.WorkingHours()
		}
	}
	return hours
}

// GetEmployeeHoursInRange 获取员工在日期范围内的工作时长
func (c *Context) GetEmployeeHoursInRange(empID uuid.UUID, startDate, endDate string) float64 {
	var hours float64
	for _, a := range c.assignmentsByEmp[empID] {
		if a.Countable() && a.Date >= startDate && a.Date <= endDate {
			hours += a.WorkingHours()
		}
	}
	return hours
}

// AvailabilityFor 获取员工在指定日期的有效可用性时间段
// 员工级覆盖优先于全员覆盖，覆盖存在时替换每周声明
// 第二个返回值表示是否命中覆盖
func (c *Context) AvailabilityFor(empID uuid.UUID, date string) ([]model.AvailabilitySlot, bool) {
	if byDate, ok := c.availabilityOverrides[empID]; ok {
		if slots, ok := byDate[date]; ok {
			return slots, true
		}
	}
	if byDate, ok := c.availabilityOverrides[uuid.Nil]; ok {
		if slots, ok := byDate[date]; ok {
			return slots, true
		}
	}
	return nil, false
}

// RulesFor 获取作用于指定员工的激活规则
func (c *Context) RulesFor(ruleType model.RuleType, empID uuid.UUID) []*model.Rule {
	var result []*model.Rule
	for _, r := range c.Rules {
		if r.Active && r.Type == ruleType && r.AppliesTo(empID) {
			result = append(result, r)
		}
	}
	return result
}

// WeekBounds 返回日期所在周的周一与周日
func WeekBounds(date string) (string, string) {
	t, err := time.Parse(model.DateFormat, date)
	if err != nil {
		return date, date
	}
	offset := (int(t.Weekday()) + 6) % 7 // 周一为一周起点
	monday := t.AddDate(0, 0, -offset)
	sunday := monday.AddDate(0, 0, 6)
	return monday.Format(model.DateFormat), sunday.Format(model.DateFormat)
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	TotalPenalty   int               `json:"total_penalty"`
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
	Score          float64           `json:"score"` // 0-100
}

// CalculateScore 计算约束满足度得分
func (r *Result) CalculateScore(maxPenalty int) {
	if maxPenalty == 0 {
		r.Score = 100.0
		return
	}
	r.Score = 100.0 * float64(maxPenalty-r.TotalPenalty) / float64(maxPenalty)
	if r.Score < 0 {
		r.Score = 0
	}
}
