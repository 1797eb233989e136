// Package solver 提供排班求解器
package solver

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// Status 求解结束状态
type Status string

const (
	// StatusOptimal 全部班次排满且在时间预算内收敛
	StatusOptimal Status = "optimal"
	// StatusFeasible 无硬约束违反，但存在覆盖缺口或放宽
	StatusFeasible Status = "feasible"
	// StatusInfeasible 放宽尝试后仍存在硬约束违反
	StatusInfeasible Status = "infeasible"
	// StatusTimeout 时间预算耗尽，返回当前最优方案
	StatusTimeout Status = "timeout"
)

// Solver 求解器接口
type Solver interface {
	// Solve 生成排班方案
	Solve(ctx context.Context, problem *builder.Problem) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// Relaxation 求解过程中应用的一次放宽
type Relaxation struct {
	RuleType   string    `json:"rule_type"`
	ShiftID    uuid.UUID `json:"shift_id"`
	EmployeeID uuid.UUID `json:"employee_id"`
	Reason     string    `json:"reason"`
}

// Result 求解结果
type Result struct {
	Status           Status                 `json:"status"`
	Assignments      []*model.Assignment    `json:"assignments"`
	Gaps             []*builder.CoverageGap `json:"gaps,omitempty"`
	Relaxations      []Relaxation           `json:"relaxations,omitempty"`
	ConstraintResult *constraint.Result     `json:"constraint_result"`
	Statistics       *Statistics            `json:"statistics"`
	Duration         time.Duration          `json:"duration"`
	Message          string                 `json:"message,omitempty"`
}

// Statistics 排班统计
type Statistics struct {
	TotalAssignments    int     `json:"total_assignments"`
	FilledShifts        int     `json:"filled_shifts"`
	TotalShifts         int     `json:"total_shifts"`
	FillRate            float64 `json:"fill_rate"`
	TotalHours          float64 `json:"total_hours"`
	AvgHoursPerEmployee float64 `json:"avg_hours_per_employee"`
	Iterations          int     `json:"iterations"`
}

// Valid 结果是否可以写回
func (r *Result) Valid() bool {
	return r.Status == StatusOptimal || r.Status == StatusFeasible || r.Status == StatusTimeout
}
