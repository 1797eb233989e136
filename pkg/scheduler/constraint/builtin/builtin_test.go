package builtin

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

func TestNoDoubleBookingConstraint(t *testing.T) {
	c := NewNoDoubleBookingConstraint()

	ctx := createTestContext([]*model.Assignment{
		createAssignmentWithTime("2026-01-12", "08:00", "16:00"),
		createAssignmentWithTime("2026-01-12", "14:00", "22:00"),
	})

	valid, penalty, violations := c.Evaluate(ctx)
	if valid {
		t.Error("重叠分配应判定无效")
	}
	if penalty == 0 || len(violations) == 0 {
		t.Error("重叠分配应有惩罚和违反详情")
	}

	// 首尾相接不算重叠
	ctx = createTestContext([]*model.Assignment{
		createAssignmentWithTime("2026-01-12", "08:00", "16:00"),
		createAssignmentWithTime("2026-01-12", "16:00", "22:00"),
	})
	if valid, _, _ := c.Evaluate(ctx); !valid {
		t.Error("首尾相接的分配不应判定重叠")
	}
}

func TestMinRestConstraint_Evaluate(t *testing.T) {
	c := NewMinRestConstraint(8)

	// 23:00 结束，次日 05:00 开始，仅休息 6 小时
	ctx := createTestContext([]*model.Assignment{
		createAssignmentWithTime("2026-01-12", "15:00", "23:00"),
		createAssignmentWithTime("2026-01-13", "05:00", "13:00"),
	})

	valid, penalty, violations := c.Evaluate(ctx)
	if valid {
		t.Error("休息 6 小时少于 8 小时应判定无效")
	}
	if penalty == 0 || len(violations) == 0 {
		t.Error("应有惩罚值和违反详情")
	}

	// 休息 10 小时应通过
	ctx = createTestContext([]*model.Assignment{
		createAssignmentWithTime("2026-01-12", "08:00", "16:00"),
		createAssignmentWithTime("2026-01-13", "02:00", "10:00"),
	})
	if valid, _, _ := c.Evaluate(ctx); !valid {
		t.Error("休息 10 小时应通过")
	}
}

func TestMinRestConstraint_RuleOverride(t *testing.T) {
	c := NewMinRestConstraint(8)

	// 规则要求 12 小时休息，间隔 10 小时不再合规
	ctx := createTestContext([]*model.Assignment{
		createAssignmentWithTime("2026-01-12", "08:00", "16:00"),
		createAssignmentWithTime("2026-01-13", "02:00", "10:00"),
	})
	ctx.SetRules([]*model.Rule{{
		BaseModel: model.NewBaseModel(),
		Type:      model.RuleRestPeriod,
		Priority:  5,
		Active:    true,
		Params:    &model.RestPeriodParams{MinRestHours: 12},
	}})

	if valid, _, _ := c.Evaluate(ctx); valid {
		t.Error("规则收紧到 12 小时后，10 小时间隔应判定无效")
	}
}

func TestMaxHoursPerWeekConstraint_Evaluate(t *testing.T) {
	c := NewMaxHoursPerWeekConstraint(40)

	// 一周 6 天、每天 8 小时 = 48 小时
	var assignments []*model.Assignment
	for day := 12; day <= 17; day++ {
		date := time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC).Format(model.DateFormat)
		assignments = append(assignments, createAssignmentWithTime(date, "09:00", "17:00"))
	}

	ctx := createTestContext(assignments)
	valid, penalty, violations := c.Evaluate(ctx)

	if valid {
		t.Error("48 小时超过 40 小时上限应判定无效")
	}
	if penalty == 0 || len(violations) == 0 {
		t.Error("应有惩罚值和违反详情")
	}
}

func TestMaxHoursPerWeekConstraint_EmployeeCap(t *testing.T) {
	c := NewMaxHoursPerWeekConstraint(40)

	// 员工自身上限 16 小时，排 24 小时
	assignments := []*model.Assignment{
		createAssignmentWithTime("2026-01-12", "09:00", "17:00"),
		createAssignmentWithTime("2026-01-13", "09:00", "17:00"),
		createAssignmentWithTime("2026-01-14", "09:00", "17:00"),
	}
	ctx := createTestContext(assignments)
	ctx.Employees[0].MaxHoursPerWeek = 16
	ctx.SetEmployees(ctx.Employees)

	if valid, _, _ := c.Evaluate(ctx); valid {
		t.Error("员工自身上限应覆盖全局默认")
	}
}

func TestAvailabilityConstraint(t *testing.T) {
	c := NewAvailabilityConstraint()

	ctx := createTestContext([]*model.Assignment{
		createAssignmentWithTime("2026-01-12", "08:00", "16:00"), // 周一
	})
	// 员工周一仅 12:00 后可用
	ctx.Employees[0].WeeklyAvailability = map[time.Weekday][]model.AvailabilitySlot{
		time.Monday: {{Start: "12:00", End: "22:00", Available: true}},
	}

	if valid, _, _ := c.Evaluate(ctx); valid {
		t.Error("分配超出声明的可用时段应判定无效")
	}

	// 覆盖规则放开当天全部时段
	ctx.SetRules([]*model.Rule{{
		BaseModel: model.NewBaseModel(),
		Type:      model.RuleAvailabilityOverride,
		Priority:  5,
		Active:    true,
		Params: &model.AvailabilityOverrideParams{
			Date:  "2026-01-12",
			Slots: []model.AvailabilitySlot{{Start: "00:00", End: "23:59", Available: true}},
		},
	}})
	if valid, _, _ := c.Evaluate(ctx); !valid {
		t.Error("覆盖规则应替换每周声明")
	}
}

func TestQualificationConstraint(t *testing.T) {
	c := NewQualificationConstraint()

	a := createAssignmentWithTime("2026-01-12", "08:00", "16:00")
	ctx := createTestContext([]*model.Assignment{a})

	shift := &model.Shift{
		BaseModel:     model.BaseModel{ID: a.ShiftID},
		Name:          "早班",
		Type:          model.ShiftTypeDay,
		Date:          "2026-01-12",
		StartTime:     "08:00",
		EndTime:       "16:00",
		RequiredStaff: 1,
		Priority:      5,
		Requirements:  model.ShiftRequirements{Qualifications: []string{"nursing_cert"}},
	}
	ctx.SetShifts([]*model.Shift{shift})

	if valid, _, _ := c.Evaluate(ctx); valid {
		t.Error("员工缺少资质应判定无效")
	}

	// 标记放宽后跳过检查
	a.RequirementRelaxed = true
	if valid, _, _ := c.Evaluate(ctx); !valid {
		t.Error("放宽标记的分配应跳过资质检查")
	}

	a.RequirementRelaxed = false
	ctx.Employees[0].Qualifications = []string{"nursing_cert"}
	if valid, _, _ := c.Evaluate(ctx); !valid {
		t.Error("具备资质的员工应通过")
	}
}

func TestCoverageConstraint(t *testing.T) {
	c := NewCoverageConstraint(WeightCoverage)

	a := createAssignmentWithTime("2026-01-12", "08:00", "16:00")
	ctx := createTestContext([]*model.Assignment{a})

	shift := &model.Shift{
		BaseModel:     model.BaseModel{ID: a.ShiftID},
		Name:          "早班",
		Date:          "2026-01-12",
		StartTime:     "08:00",
		EndTime:       "16:00",
		RequiredStaff: 3,
		Priority:      10,
	}
	ctx.SetShifts([]*model.Shift{shift})

	valid, penalty, violations := c.Evaluate(ctx)
	if !valid {
		t.Error("欠覆盖是软约束，不应使结果无效")
	}
	if penalty != WeightCoverage*2*10 {
		t.Errorf("缺员 2 人的优先级 10 班次惩罚 = %d, expected %d", penalty, WeightCoverage*2*10)
	}
	if len(violations) != 1 {
		t.Errorf("应有 1 条缺员详情, got %d", len(violations))
	}
}

func TestBlockedShiftConstraint_HardOverride(t *testing.T) {
	a := createAssignmentWithTime("2026-01-12", "22:00", "23:00")
	ctx := createTestContext([]*model.Assignment{a})

	shift := &model.Shift{
		BaseModel: model.BaseModel{ID: a.ShiftID},
		Type:      model.ShiftTypeNight,
		Date:      "2026-01-12",
	}
	ctx.SetShifts([]*model.Shift{shift})
	ctx.SetRules([]*model.Rule{{
		BaseModel: model.NewBaseModel(),
		Type:      model.RuleBlockedShift,
		Priority:  9, // 达到阈值 8，按硬约束处理
		Active:    true,
		Params:    &model.ShiftSelectorParams{ShiftTypes: []string{model.ShiftTypeNight}},
	}})

	hard := NewBlockedShiftConstraint(WeightBlocked, true)
	if valid, _, _ := hard.Evaluate(ctx); valid {
		t.Error("高优先级禁止规则应按硬约束拒绝分配")
	}

	soft := NewBlockedShiftConstraint(WeightBlocked, false)
	if _, penalty, _ := soft.Evaluate(ctx); penalty != 0 {
		t.Error("软约束实例不应处理已升级为硬约束的规则")
	}
}

// 辅助函数

func createTestContext(assignments []*model.Assignment) *constraint.Context {
	ctx := constraint.NewContext(uuid.New(), "2026-01-12", "2026-01-18")

	empID := uuid.New()
	emp := &model.Employee{
		BaseModel: model.BaseModel{ID: empID},
		Name:      "测试员工",
		Status:    "active",
	}
	ctx.SetEmployees([]*model.Employee{emp})

	for _, a := range assignments {
		a.EmployeeID = empID
	}

	ctx.SetAssignments(assignments)
	return ctx
}

func createAssignmentWithTime(date, start, end string) *model.Assignment {
	startTime, _ := time.Parse("2006-01-02 15:04", date+" "+start)
	endTime, _ := time.Parse("2006-01-02 15:04", date+" "+end)
	if !endTime.After(startTime) {
		endTime = endTime.AddDate(0, 0, 1)
	}

	return &model.Assignment{
		BaseModel: model.BaseModel{ID: uuid.New()},
		ShiftID:   uuid.New(),
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    model.AssignmentStatusAssigned,
	}
}
