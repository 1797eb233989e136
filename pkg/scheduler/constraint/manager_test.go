package constraint

import (
	"testing"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
)

func TestManager_Register(t *testing.T) {
	manager := NewManager()

	c := &MockConstraint{
		name:     "test",
		typ:      Type("test_type"),
		category: CategoryHard,
	}
	manager.Register(c)

	constraints := manager.GetAll()
	if len(constraints) != 1 {
		t.Errorf("Expected 1 constraint, got %d", len(constraints))
	}
}

func TestManager_RegisterOrder(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "soft", typ: Type("soft"), category: CategorySoft, weight: 90})
	manager.Register(&MockConstraint{name: "hard", typ: Type("hard"), category: CategoryHard, weight: 10})

	all := manager.GetAll()
	if all[0].Category() != CategoryHard {
		t.Error("硬约束应排在软约束之前")
	}
}

func TestManager_GetByCategory(t *testing.T) {
	manager := NewManager()

	hard := &MockConstraint{name: "hard1", typ: Type("hard1"), category: CategoryHard}
	soft := &MockConstraint{name: "soft1", typ: Type("soft1"), category: CategorySoft}
	manager.Register(hard)
	manager.Register(soft)

	hardConstraints := manager.GetByCategory(CategoryHard)
	if len(hardConstraints) != 1 {
		t.Errorf("Expected 1 hard constraint, got %d", len(hardConstraints))
	}

	softConstraints := manager.GetByCategory(CategorySoft)
	if len(softConstraints) != 1 {
		t.Errorf("Expected 1 soft constraint, got %d", len(softConstraints))
	}
}

func TestManager_Evaluate(t *testing.T) {
	manager := NewManager()

	pass := &MockConstraint{
		name:     "pass",
		typ:      Type("pass_type"),
		category: CategoryHard,
		pass:     true,
	}
	manager.Register(pass)

	ctx := NewContext(uuid.New(), "2026-01-12", "2026-01-18")

	result := manager.Evaluate(ctx)

	if !result.IsValid {
		t.Error("全部约束通过时结果应有效")
	}
	if result.TotalPenalty != 0 {
		t.Errorf("Expected 0 penalty, got %d", result.TotalPenalty)
	}
}

func TestManager_EvaluateHardViolation(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{
		name:     "fail",
		typ:      Type("fail_type"),
		category: CategoryHard,
		penalty:  50,
	})

	ctx := NewContext(uuid.New(), "2026-01-12", "2026-01-18")
	result := manager.Evaluate(ctx)

	if result.IsValid {
		t.Error("硬约束违反时结果应无效")
	}
	if len(result.HardViolations) != 1 {
		t.Errorf("Expected 1 hard violation, got %d", len(result.HardViolations))
	}
}

func TestManager_CanAssign(t *testing.T) {
	manager := NewManager()
	manager.Register(&MockConstraint{name: "soft", typ: Type("soft"), category: CategorySoft, penalty: 10})

	ctx := NewContext(uuid.New(), "2026-01-12", "2026-01-18")
	a := &model.Assignment{BaseModel: model.NewBaseModel()}

	// 软约束违反不应阻止分配
	if ok, _ := manager.CanAssign(ctx, a); !ok {
		t.Error("软约束不应阻止分配")
	}

	manager.Register(&MockConstraint{name: "hard", typ: Type("hard"), category: CategoryHard, penalty: 10})
	if ok, reason := manager.CanAssign(ctx, a); ok {
		t.Error("硬约束违反应阻止分配")
	} else if reason == "" {
		t.Error("阻止分配时应给出原因")
	}
}

func TestManager_EvaluateSoftPenalty(t *testing.T) {
	manager := NewManager()

	// 软约束即使判定通过也可能带有偏好惩罚
	manager.Register(&MockConstraint{
		name:     "soft",
		typ:      Type("soft_type"),
		category: CategorySoft,
		pass:     true,
		penalty:  10,
	})

	ctx := NewContext(uuid.New(), "2026-01-12", "2026-01-18")
	result := manager.Evaluate(ctx)

	if !result.IsValid {
		t.Error("软约束惩罚不应影响可行性")
	}
	if result.TotalPenalty != 10 {
		t.Errorf("TotalPenalty = %d, expected 10", result.TotalPenalty)
	}
	if len(result.SoftViolations) != 1 {
		t.Errorf("Expected 1 soft violation, got %d", len(result.SoftViolations))
	}
	if len(result.HardViolations) != 0 {
		t.Errorf("Expected 0 hard violations, got %d", len(result.HardViolations))
	}
}

func TestManager_Clear(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "test", typ: Type("test"), category: CategoryHard})
	manager.Clear()

	if len(manager.GetAll()) != 0 {
		t.Error("Expected 0 constraints after clear")
	}
}

func TestManager_Count(t *testing.T) {
	manager := NewManager()

	if manager.Count() != 0 {
		t.Error("Expected 0 count for empty manager")
	}

	manager.Register(&MockConstraint{name: "c1", typ: Type("c1"), category: CategoryHard})
	manager.Register(&MockConstraint{name: "c2", typ: Type("c2"), category: CategorySoft})

	if manager.Count() != 2 {
		t.Errorf("Expected 2 count, got %d", manager.Count())
	}
}

// MockConstraint 用于测试的模拟约束
type MockConstraint struct {
	name     string
	typ      Type
	category Category
	weight   int
	pass     bool
	penalty  int
}

func (m *MockConstraint) Name() string       { return m.name }
func (m *MockConstraint) Type() Type         { return m.typ }
func (m *MockConstraint) Category() Category { return m.category }
func (m *MockConstraint) Weight() int {
	if m.weight == 0 {
		return 100
	}
	return m.weight
}

func (m *MockConstraint) Evaluate(ctx *Context) (bool, int, []ViolationDetail) {
	if m.pass && m.penalty == 0 {
		return true, 0, nil
	}
	return m.pass, m.penalty, []ViolationDetail{
		{ConstraintName: m.name, Message: "违反约束", Penalty: m.penalty},
	}
}

func (m *MockConstraint) EvaluateAssignment(ctx *Context, assignment *model.Assignment) (bool, int) {
	return m.pass, m.penalty
}

func TestWeekBounds(t *testing.T) {
	// 2026-01-14 为周三
	monday, sunday := WeekBounds("2026-01-14")
	if monday != "2026-01-12" {
		t.Errorf("周一 = %s, expected 2026-01-12", monday)
	}
	if sunday != "2026-01-18" {
		t.Errorf("周日 = %s, expected 2026-01-18", sunday)
	}
}

func TestContext_AvailabilityFor(t *testing.T) {
	ctx := NewContext(uuid.New(), "2026-01-12", "2026-01-18")
	empID := uuid.New()

	rule := &model.Rule{
		BaseModel:  model.NewBaseModel(),
		Type:       model.RuleAvailabilityOverride,
		EmployeeID: &empID,
		Priority:   5,
		Active:     true,
		Params: &model.AvailabilityOverrideParams{
			Date:  "2026-01-14",
			Slots: []model.AvailabilitySlot{{Start: "08:00", End: "12:00", Available: true}},
		},
	}
	ctx.SetRules([]*model.Rule{rule})

	slots, overridden := ctx.AvailabilityFor(empID, "2026-01-14")
	if !overridden || len(slots) != 1 {
		t.Fatalf("应命中员工级覆盖, overridden=%v slots=%d", overridden, len(slots))
	}

	if _, overridden := ctx.AvailabilityFor(empID, "2026-01-15"); overridden {
		t.Error("未覆盖的日期不应命中")
	}
	if _, overridden := ctx.AvailabilityFor(uuid.New(), "2026-01-14"); overridden {
		t.Error("其他员工不应命中员工级覆盖")
	}
}
