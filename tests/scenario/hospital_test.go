package scenario

import (
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
	"github.com/banbiao/banbiao/pkg/validator"
)

// TestHospitalRestPeriodViolation 晚班 23:00 结束、次日 05:00 开工，
// 8 小时休息规则下仅剩 6 小时间隔，冲突检测必须拒绝
func TestHospitalRestPeriodViolation(t *testing.T) {
	emp := createEmployee("张三", "护士证")
	evening := createShift("晚班", model.ShiftTypeEvening, "2026-03-02", "15:00", "23:00", 1)
	early := createShift("早班", model.ShiftTypeDay, "2026-03-03", "05:00", "13:00", 1)

	snapshot := &builder.Snapshot{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-08",
		Employees: []*model.Employee{emp},
		Shifts:    []*model.Shift{evening, early},
		Rules: []*model.Rule{
			createRule(t, model.RuleRestPeriod, nil, 5, &model.RestPeriodParams{MinRestHours: 8}),
		},
		Assignments: []*model.Assignment{
			createAssignment(emp, evening, model.AssignmentStatusAssigned),
			createAssignment(emp, early, model.AssignmentStatusAssigned),
		},
	}

	conflicts := detect(snapshot)

	found := false
	for _, c := range conflicts {
		if c.Type == validator.ConflictRestPeriod {
			found = true
			if c.Severity != "error" {
				t.Errorf("休息时间冲突级别 = %s, 期望 error", c.Severity)
			}
		}
	}
	if !found {
		t.Error("间隔 6 小时 < 最小休息 8 小时，应检出 rest_period 冲突")
	}
	t.Logf("检出冲突 %d 个", len(conflicts))
}

// TestHospitalSkillRequirement 需要护士证的班次只能分给持证员工
func TestHospitalSkillRequirement(t *testing.T) {
	nurse := createEmployee("张三", "护士证")
	aide := createEmployee("李四")
	shift := createShift("病房班", model.ShiftTypeDay, "2026-03-02", "08:00", "16:00", 1)
	shift.Requirements = model.ShiftRequirements{Qualifications: []string{"护士证"}}

	snapshot := &builder.Snapshot{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-08",
		Employees: []*model.Employee{nurse, aide},
		Shifts:    []*model.Shift{shift},
	}

	result := solve(t, snapshot)

	if len(result.Assignments) != 1 {
		t.Fatalf("分配数 = %d, 期望 1", len(result.Assignments))
	}
	if result.Assignments[0].EmployeeID != nurse.ID {
		t.Error("需要护士证的班次被分给了无证员工")
	}
}

// TestHospitalBlockedShiftHardOverride 优先级达到硬约束阈值的禁止规则
// 直接剔除候选；候选清空时返回 NoEligibleEmployees
func TestHospitalBlockedShiftHardOverride(t *testing.T) {
	emp := createEmployee("张三")
	night := createShift("夜班", model.ShiftTypeNight, "2026-03-02", "22:00", "06:00", 1)

	blocked := createRule(t, model.RuleBlockedShift, &emp.ID, 9, &model.ShiftSelectorParams{
		ShiftTypes: []string{model.ShiftTypeNight},
	})

	snapshot := &builder.Snapshot{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-08",
		Employees: []*model.Employee{emp},
		Shifts:    []*model.Shift{night},
		Rules:     []*model.Rule{blocked},
	}

	_, err := builder.New(constraint.DefaultSettings()).Build(uuid.New(), snapshot)
	if err == nil {
		t.Fatal("唯一候选被硬性禁止后应构建失败")
	}
	if !apperrors.Is(err, apperrors.CodeNoEligibleEmployees) {
		t.Errorf("错误码 = %s, 期望 NO_ELIGIBLE_EMPLOYEES", apperrors.GetCode(err))
	}
}

// TestHospitalBlockedShiftSoftRule 低优先级禁止规则是软约束，
// 无人可用时仍允许分配
func TestHospitalBlockedShiftSoftRule(t *testing.T) {
	emp := createEmployee("张三")
	night := createShift("夜班", model.ShiftTypeNight, "2026-03-02", "22:00", "06:00", 1)

	blocked := createRule(t, model.RuleBlockedShift, &emp.ID, 3, &model.ShiftSelectorParams{
		ShiftTypes: []string{model.ShiftTypeNight},
	})

	snapshot := &builder.Snapshot{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-08",
		Employees: []*model.Employee{emp},
		Shifts:    []*model.Shift{night},
		Rules:     []*model.Rule{blocked},
	}

	result := solve(t, snapshot)

	if len(result.Assignments) != 1 {
		t.Errorf("软禁止规则不应阻止分配, 分配数 = %d", len(result.Assignments))
	}
	if result.ConstraintResult != nil && len(result.ConstraintResult.SoftViolations) == 0 {
		t.Error("违背软禁止规则应计入软约束违反")
	}
}

// TestHospitalAvailabilityOverride 指定日期的不可用覆盖优先于每周声明
func TestHospitalAvailabilityOverride(t *testing.T) {
	emp := createEmployee("张三")
	backup := createEmployee("李四")
	shift := createShift("门诊班", model.ShiftTypeDay, "2026-03-02", "08:00", "16:00", 1)

	// 张三当天请假：覆盖为全天不可用
	leave := createRule(t, model.RuleAvailabilityOverride, &emp.ID, 9, &model.AvailabilityOverrideParams{
		Date:  "2026-03-02",
		Slots: []model.AvailabilitySlot{{Start: "00:00", End: "24:00", Available: false}},
	})

	snapshot := &builder.Snapshot{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-08",
		Employees: []*model.Employee{emp, backup},
		Shifts:    []*model.Shift{shift},
		Rules:     []*model.Rule{leave},
	}

	result := solve(t, snapshot)

	if len(result.Assignments) != 1 {
		t.Fatalf("分配数 = %d, 期望 1", len(result.Assignments))
	}
	if result.Assignments[0].EmployeeID != backup.ID {
		t.Error("请假员工不应被排班")
	}
}
