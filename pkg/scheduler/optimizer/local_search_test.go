package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

func newEmployee(name string) *model.Employee {
	return &model.Employee{
		BaseModel: model.NewBaseModel(),
		Name:      name,
		Status:    "active",
	}
}

func newShift(name, date, start, end string, required int) *model.Shift {
	return &model.Shift{
		BaseModel:     model.NewBaseModel(),
		Name:          name,
		Type:          model.ShiftTypeDay,
		Date:          date,
		StartTime:     start,
		EndTime:       end,
		RequiredStaff: required,
		Priority:      5,
	}
}

func newAssignment(shift *model.Shift, emp *model.Employee) *model.Assignment {
	interval, _ := shift.Interval()
	return &model.Assignment{
		BaseModel:    model.NewBaseModel(),
		ShiftID:      shift.ID,
		EmployeeID:   emp.ID,
		Date:         shift.Date,
		StartTime:    interval.Start,
		EndTime:      interval.End,
		Status:       model.AssignmentStatusAssigned,
		AutoAssigned: true,
	}
}

func buildProblem(t *testing.T, snapshot *builder.Snapshot) *builder.Problem {
	t.Helper()
	problem, err := builder.New(constraint.DefaultSettings()).Build(uuid.New(), snapshot)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return problem
}

func TestSolution_Clone(t *testing.T) {
	emp := newEmployee("张三")
	shift := newShift("早班", "2026-01-12", "08:00", "16:00", 1)
	s := &Solution{
		Assignments: []*model.Assignment{newAssignment(shift, emp)},
		Score:       42.5,
		Violations:  []string{"违反"},
		Feasible:    false,
	}

	clone := s.Clone()
	clone.Assignments[0].EmployeeID = uuid.New()
	clone.Violations[0] = "改动"

	if s.Assignments[0].EmployeeID != emp.ID {
		t.Error("Clone 应深拷贝分配")
	}
	if s.Violations[0] != "违反" {
		t.Error("Clone 应拷贝违反列表")
	}
	if clone.Score != s.Score {
		t.Errorf("Score = %f, expected %f", clone.Score, s.Score)
	}
}

func TestTabuList(t *testing.T) {
	tabu := NewTabuList(2)

	tabu.Add(1)
	tabu.Add(2)
	if !tabu.Contains(1) || !tabu.Contains(2) {
		t.Error("禁忌表应包含已添加的键")
	}

	// 超出容量时淘汰最旧的
	tabu.Add(3)
	if tabu.Contains(1) {
		t.Error("最旧的键应被淘汰")
	}
	if !tabu.Contains(2) || !tabu.Contains(3) {
		t.Error("较新的键应保留")
	}

	tabu.Clear()
	if tabu.Contains(2) {
		t.Error("Clear 后禁忌表应为空")
	}
}

func TestBoltzmannProbability(t *testing.T) {
	tests := []struct {
		name        string
		delta       float64
		temperature float64
		expected    float64
	}{
		{"更优解总是接受", -10, 100, 1.0},
		{"零温度拒绝更差解", 10, 0, 0.0},
		{"高温接受概率更高", 10, 1000, 0.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := boltzmannProbability(tt.delta, tt.temperature)
			if tt.expected == 1.0 && p != 1.0 {
				t.Errorf("p = %f, expected 1.0", p)
			}
			if tt.expected == 0.0 && p != 0.0 {
				t.Errorf("p = %f, expected 0.0", p)
			}
			if tt.expected == 0.99 && p < 0.9 {
				t.Errorf("p = %f, expected > 0.9", p)
			}
		})
	}
}

func TestManagerEvaluator_HardViolation(t *testing.T) {
	emp := newEmployee("张三")
	s1 := newShift("早班", "2026-01-12", "08:00", "16:00", 1)
	s2 := newShift("重叠班", "2026-01-12", "10:00", "18:00", 1)

	problem := buildProblem(t, &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{emp},
		Shifts:    []*model.Shift{s1, s2},
	})

	evaluator := NewManagerEvaluator(problem)

	// 无重叠：无硬违反
	score, violations := evaluator.Evaluate([]*model.Assignment{newAssignment(s1, emp)})
	if len(violations) != 0 {
		t.Errorf("violations = %d, expected 0", len(violations))
	}

	// 同员工重叠班次：产生硬违反且得分显著上升
	overlapScore, overlapViolations := evaluator.Evaluate([]*model.Assignment{
		newAssignment(s1, emp),
		newAssignment(s2, emp),
	})
	if len(overlapViolations) == 0 {
		t.Error("重叠分配应产生硬约束违反")
	}
	if overlapScore <= score {
		t.Errorf("重叠方案得分 %f 应高于正常方案 %f", overlapScore, score)
	}
}

func TestNeighborhoodGenerator_InsertFillsGap(t *testing.T) {
	emp1 := newEmployee("张三")
	emp2 := newEmployee("李四")
	shift := newShift("早班", "2026-01-12", "08:00", "16:00", 2)

	problem := buildProblem(t, &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{emp1, emp2},
		Shifts:    []*model.Shift{shift},
	})

	gen := NewNeighborhoodGenerator(problem)
	current := &Solution{Assignments: []*model.Assignment{newAssignment(shift, emp1)}}

	neighbor := gen.generateInsertMove(current)
	if neighbor == nil {
		t.Fatal("缺员班次应能生成插入移动")
	}
	if len(neighbor.Assignments) != 2 {
		t.Fatalf("Assignments = %d, expected 2", len(neighbor.Assignments))
	}
	inserted := neighbor.Assignments[1]
	if inserted.EmployeeID != emp2.ID {
		t.Error("插入应选择尚未承接班次的员工")
	}
	if !inserted.AutoAssigned {
		t.Error("插入的分配应标记 AutoAssigned")
	}
}

func TestNeighborhoodGenerator_RemoveOnlyOverstaffed(t *testing.T) {
	emp1 := newEmployee("张三")
	emp2 := newEmployee("李四")
	shift := newShift("早班", "2026-01-12", "08:00", "16:00", 1)

	problem := buildProblem(t, &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{emp1, emp2},
		Shifts:    []*model.Shift{shift},
	})

	gen := NewNeighborhoodGenerator(problem)

	// 刚好满员：不生成移除移动
	exact := &Solution{Assignments: []*model.Assignment{newAssignment(shift, emp1)}}
	if gen.generateRemoveMove(exact) != nil {
		t.Error("满员班次不应生成移除移动")
	}

	// 超员：可以移除
	over := &Solution{Assignments: []*model.Assignment{
		newAssignment(shift, emp1),
		newAssignment(shift, emp2),
	}}
	neighbor := gen.generateRemoveMove(over)
	if neighbor == nil {
		t.Fatal("超员班次应能生成移除移动")
	}
	if len(neighbor.Assignments) != 1 {
		t.Errorf("Assignments = %d, expected 1", len(neighbor.Assignments))
	}
}

func TestNeighborhoodGenerator_SwapRespectsEligibility(t *testing.T) {
	emp1 := newEmployee("张三")
	emp2 := newEmployee("李四")
	emp2.Qualifications = []string{"surgery_cert"}

	normal := newShift("普通班", "2026-01-12", "08:00", "16:00", 1)
	certified := newShift("手术班", "2026-01-13", "08:00", "16:00", 1)
	certified.Requirements = model.ShiftRequirements{Qualifications: []string{"surgery_cert"}}

	problem := buildProblem(t, &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{emp1, emp2},
		Shifts:    []*model.Shift{normal, certified},
	})

	gen := NewNeighborhoodGenerator(problem)
	current := &Solution{Assignments: []*model.Assignment{
		newAssignment(normal, emp1),
		newAssignment(certified, emp2),
	}}

	// emp1 不具备手术班资质，交换永远不可行
	for i := 0; i < 50; i++ {
		if neighbor := gen.generateSwapMove(current); neighbor != nil {
			t.Fatal("缺资质员工不应被交换进资质班次")
		}
	}
}

func TestLocalSearchOptimizer_StrictImprovement(t *testing.T) {
	emp1 := newEmployee("张三")
	emp2 := newEmployee("李四")
	shift := newShift("早班", "2026-01-12", "08:00", "16:00", 2)

	problem := buildProblem(t, &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{emp1, emp2},
		Shifts:    []*model.Shift{shift},
	})

	config := DefaultOptConfig()
	config.MaxIterations = 200
	config.MaxTime = 5 * time.Second

	opt := NewLocalSearchOptimizer(config, NewManagerEvaluator(problem))

	// 初始方案缺一人，插入移动应能改进覆盖
	initial := &Solution{Assignments: []*model.Assignment{newAssignment(shift, emp1)}}
	result, err := opt.Optimize(context.Background(), initial, problem)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}

	if result.Score > initial.Score {
		t.Errorf("优化结果得分 %f 不应差于初始方案 %f", result.Score, initial.Score)
	}
	if !result.Feasible {
		t.Error("优化结果不应含硬约束违反")
	}
}

func TestLocalSearchOptimizer_KeepsInitialWhenNoImprovement(t *testing.T) {
	emp := newEmployee("张三")
	shift := newShift("早班", "2026-01-12", "08:00", "16:00", 1)

	problem := buildProblem(t, &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{emp},
		Shifts:    []*model.Shift{shift},
	})

	config := DefaultOptConfig()
	config.MaxIterations = 50

	opt := NewLocalSearchOptimizer(config, NewManagerEvaluator(problem))

	// 已是满员最优方案，优化应原样保留
	initial := &Solution{Assignments: []*model.Assignment{newAssignment(shift, emp)}}
	result, err := opt.Optimize(context.Background(), initial, problem)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}

	if len(result.Assignments) != 1 {
		t.Errorf("Assignments = %d, expected 1", len(result.Assignments))
	}
	if result.Assignments[0].EmployeeID != emp.ID {
		t.Error("无改进时应保留初始分配")
	}
}

func TestParallelOptimizer_Optimize(t *testing.T) {
	emp1 := newEmployee("张三")
	emp2 := newEmployee("李四")
	shift := newShift("早班", "2026-01-12", "08:00", "16:00", 2)

	problem := buildProblem(t, &builder.Snapshot{
		StartDate: "2026-01-12",
		EndDate:   "2026-01-18",
		Employees: []*model.Employee{emp1, emp2},
		Shifts:    []*model.Shift{shift},
	})

	config := DefaultOptConfig()
	config.MaxIterations = 100
	config.ParallelWorkers = 2
	config.MaxTime = 5 * time.Second

	opt := NewParallelOptimizer(config, NewManagerEvaluator(problem))

	initial := &Solution{Assignments: []*model.Assignment{newAssignment(shift, emp1)}}
	result, err := opt.Optimize(context.Background(), initial, problem)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}

	if result.Score > initial.Score {
		t.Errorf("优化结果得分 %f 不应差于初始方案 %f", result.Score, initial.Score)
	}
}
