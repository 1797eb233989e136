package scenario

import (
	"testing"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
	"github.com/banbiao/banbiao/pkg/scheduler/solver"
)

// TestRetailFullCoverage 门店人手充足时应得到完全覆盖的最优解
func TestRetailFullCoverage(t *testing.T) {
	snapshot := &builder.Snapshot{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-08",
		Employees: []*model.Employee{
			createEmployee("张三"),
			createEmployee("李四"),
			createEmployee("王五"),
		},
		Shifts: []*model.Shift{
			createShift("早班", model.ShiftTypeDay, "2026-03-02", "09:00", "17:00", 2),
		},
	}

	result := solve(t, snapshot)

	if result.Status != solver.StatusOptimal {
		t.Errorf("状态 = %s, 期望 optimal（%s）", result.Status, result.Message)
	}
	if len(result.Assignments) != 2 {
		t.Errorf("分配数 = %d, 期望 2", len(result.Assignments))
	}
	if len(result.Gaps) != 0 {
		t.Errorf("不应有覆盖缺口, 实际 %d 个", len(result.Gaps))
	}

	// 同一员工不能在同一班次出现两次
	seen := make(map[uuid.UUID]bool)
	for _, a := range result.Assignments {
		if seen[a.EmployeeID] {
			t.Error("同一员工被重复分配到同一班次")
		}
		seen[a.EmployeeID] = true
	}

	t.Logf("覆盖率=%.1f%%, 分配=%d", result.Statistics.FillRate, len(result.Assignments))
}

// TestRetailStaffShortage 人手不足时应返回带缺口的可行解而不是崩溃
func TestRetailStaffShortage(t *testing.T) {
	snapshot := &builder.Snapshot{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-08",
		Employees: []*model.Employee{createEmployee("张三")},
		Shifts: []*model.Shift{
			createShift("早班", model.ShiftTypeDay, "2026-03-02", "09:00", "17:00", 2),
		},
	}

	result := solve(t, snapshot)

	if result.Status != solver.StatusFeasible {
		t.Errorf("状态 = %s, 期望 feasible", result.Status)
	}
	if len(result.Assignments) != 1 {
		t.Errorf("分配数 = %d, 期望 1", len(result.Assignments))
	}
	if len(result.Gaps) != 1 {
		t.Fatalf("缺口数 = %d, 期望 1", len(result.Gaps))
	}

	gap := result.Gaps[0]
	if gap.Required-gap.Assigned != 1 {
		t.Errorf("缺口人数 = %d, 期望 1", gap.Required-gap.Assigned)
	}
}

// TestRetailOverlappingShifts 同日重叠班次不得分给同一员工
func TestRetailOverlappingShifts(t *testing.T) {
	emp := createEmployee("张三")
	backup := createEmployee("李四")
	snapshot := &builder.Snapshot{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-08",
		Employees: []*model.Employee{emp, backup},
		Shifts: []*model.Shift{
			createShift("早班", model.ShiftTypeDay, "2026-03-02", "09:00", "17:00", 1),
			createShift("午班", model.ShiftTypeDay, "2026-03-02", "13:00", "21:00", 1),
		},
	}

	result := solve(t, snapshot)

	perEmployee := make(map[uuid.UUID]int)
	for _, a := range result.Assignments {
		perEmployee[a.EmployeeID]++
	}
	for id, n := range perEmployee {
		if n > 1 {
			t.Errorf("员工 %s 在重叠班次上被分配了 %d 次", id, n)
		}
	}
}

// TestRetailRegenerateKeepsConfirmed 重新生成时已确认的分配保持不动
func TestRetailRegenerateKeepsConfirmed(t *testing.T) {
	emp := createEmployee("张三")
	other := createEmployee("李四")
	shift := createShift("早班", model.ShiftTypeDay, "2026-03-02", "09:00", "17:00", 1)
	confirmed := createAssignment(emp, shift, model.AssignmentStatusConfirmed)

	snapshot := &builder.Snapshot{
		StartDate:   "2026-03-02",
		EndDate:     "2026-03-08",
		Employees:   []*model.Employee{emp, other},
		Shifts:      []*model.Shift{shift},
		Assignments: []*model.Assignment{confirmed},
	}

	problem, err := builder.New(constraint.DefaultSettings()).Build(uuid.New(), snapshot)
	if err != nil {
		t.Fatalf("问题构建失败: %v", err)
	}
	if len(problem.Pinned) != 1 {
		t.Fatalf("锁定分配数 = %d, 期望 1", len(problem.Pinned))
	}

	result := solve(t, snapshot)

	// 班次已由锁定分配占满，不应产生新分配
	if len(result.Assignments) != 0 {
		t.Errorf("新分配数 = %d, 期望 0", len(result.Assignments))
	}
	if result.Status != solver.StatusOptimal {
		t.Errorf("状态 = %s, 期望 optimal", result.Status)
	}
}
