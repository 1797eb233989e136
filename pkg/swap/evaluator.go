// Package swap 提供换班/调班功能
package swap

import (
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
	"github.com/banbiao/banbiao/pkg/validator"
)

// Evaluator 换班评估器
type Evaluator struct {
	manager  *constraint.Manager
	detector *validator.Detector
}

// NewEvaluator 创建换班评估器
func NewEvaluator(cm *constraint.Manager, settings constraint.Settings) *Evaluator {
	return &Evaluator{
		manager:  cm,
		detector: validator.NewDetector(settings),
	}
}

// Request 换班请求
type Request struct {
	SourceAssignment *model.Assignment `json:"source_assignment"`
	TargetEmployee   *model.Employee   `json:"target_employee"`
	TargetAssignment *model.Assignment `json:"target_assignment,omitempty"` // 互换时的目标班次
}

// Evaluation 换班评估结果
type Evaluation struct {
	Feasible       bool     `json:"feasible"`
	Score          float64  `json:"score"` // 0-100
	Issues         []Issue  `json:"issues"`
	Impact         *Impact  `json:"impact"`
	Recommendation string   `json:"recommendation"`
}

// Issue 换班问题
type Issue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // error/warning/info
	Message  string `json:"message"`
}

// Impact 换班影响
type Impact struct {
	SourceEmployeeImpact *EmployeeImpact `json:"source_employee_impact"`
	TargetEmployeeImpact *EmployeeImpact `json:"target_employee_impact"`
}

// EmployeeImpact 员工影响
type EmployeeImpact struct {
	HoursChange    float64 `json:"hours_change"`
	OvertimeChange float64 `json:"overtime_change"`
	NewConflicts   int     `json:"new_conflicts"`
}

// Evaluate 评估换班可行性
func (e *Evaluator) Evaluate(ctx *constraint.Context, request *Request) *Evaluation {
	result := &Evaluation{
		Feasible: true,
		Score:    100,
		Issues:   make([]Issue, 0),
		Impact: &Impact{
			SourceEmployeeImpact: &EmployeeImpact{},
			TargetEmployeeImpact: &EmployeeImpact{},
		},
	}

	source := request.SourceAssignment
	targetEmp := request.TargetEmployee

	if source == nil || targetEmp == nil {
		result.Feasible = false
		result.Issues = append(result.Issues, Issue{
			Type:     "invalid_request",
			Severity: "error",
			Message:  "无效的换班请求",
		})
		return result
	}

	if !targetEmp.IsActive() {
		result.Feasible = false
		result.Issues = append(result.Issues, Issue{
			Type:     "employee_inactive",
			Severity: "error",
			Message:  "目标员工不在职",
		})
		return result
	}

	if shift := ctx.GetShift(source.ShiftID); shift != nil {
		if !targetEmp.MeetsRequirements(shift.Requirements) {
			result.Feasible = false
			result.Issues = append(result.Issues, Issue{
				Type:     "qualification_mismatch",
				Severity: "error",
				Message:  "目标员工不满足班次的资质要求",
			})
		}
	}

	// 模拟换班后检测冲突
	simCtx := e.simulatedContext(ctx, request)
	for _, conflict := range e.detector.Detect(simCtx) {
		if conflict.EmployeeID != targetEmp.ID {
			continue
		}
		result.Issues = append(result.Issues, Issue{
			Type:     string(conflict.Type),
			Severity: conflict.Severity,
			Message:  conflict.Message,
		})
		if conflict.Severity == "error" {
			result.Feasible = false
			result.Impact.TargetEmployeeImpact.NewConflicts++
		}
	}

	// 约束评估给出整体得分
	if e.manager != nil {
		constraintResult := e.manager.Evaluate(simCtx)
		for _, v := range constraintResult.HardViolations {
			if v.EmployeeID != targetEmp.ID {
				continue
			}
			result.Feasible = false
			result.Issues = append(result.Issues, Issue{
				Type:     string(v.ConstraintType),
				Severity: "error",
				Message:  v.Message,
			})
		}
		result.Score = constraintResult.Score
	}

	e.calculateImpact(ctx, request, result)
	result.Recommendation = recommendation(result)

	return result
}

// CanSwap 快速检查是否可换班
func (e *Evaluator) CanSwap(ctx *constraint.Context, request *Request) (bool, string) {
	result := e.Evaluate(ctx, request)
	if !result.Feasible {
		if len(result.Issues) > 0 {
			return false, result.Issues[0].Message
		}
		return false, "无法进行换班"
	}
	return true, ""
}

// simulateSwap 模拟换班后的分配列表
func (e *Evaluator) simulateSwap(ctx *constraint.Context, request *Request) []*model.Assignment {
	simulated := make([]*model.Assignment, 0, len(ctx.Assignments))

	for _, a := range ctx.Assignments {
		switch {
		case a.ID == request.SourceAssignment.ID:
			replaced := *a
			replaced.EmployeeID = request.TargetEmployee.ID
			simulated = append(simulated, &replaced)
		case request.TargetAssignment != nil && a.ID == request.TargetAssignment.ID:
			// 互换场景：目标班次分配给源员工
			replaced := *a
			replaced.EmployeeID = request.SourceAssignment.EmployeeID
			simulated = append(simulated, &replaced)
		default:
			simulated = append(simulated, a)
		}
	}

	return simulated
}

// simulatedContext 基于模拟分配构造上下文
func (e *Evaluator) simulatedContext(ctx *constraint.Context, request *Request) *constraint.Context {
	simCtx := constraint.NewContext(ctx.ScheduleID, ctx.StartDate, ctx.EndDate)
	simCtx.Settings = ctx.Settings
	simCtx.SetEmployees(ctx.Employees)
	simCtx.SetShifts(ctx.Shifts)
	simCtx.SetRules(ctx.Rules)
	simCtx.SetAssignments(e.simulateSwap(ctx, request))
	return simCtx
}

// calculateImpact 计算换班对双方工时的影响
func (e *Evaluator) calculateImpact(ctx *constraint.Context, request *Request, result *Evaluation) {
	source := request.SourceAssignment
	targetEmp := request.TargetEmployee
	sourceEmp := ctx.GetEmployee(source.EmployeeID)

	if sourceEmp == nil || targetEmp == nil {
		return
	}

	hours := source.WorkingHours()
	if request.TargetAssignment != nil {
		// 互换时双方工时变化为两个班次的差值
		hours -= request.TargetAssignment.WorkingHours()
	}

	result.Impact.SourceEmployeeImpact.HoursChange = -hours
	result.Impact.TargetEmployeeImpact.HoursChange = hours

	standard := ctx.Settings.StandardWeeklyHours
	targetCurrent := ctx.GetEmployeeHoursInRange(targetEmp.ID, ctx.StartDate, ctx.EndDate)
	targetNew := targetCurrent + hours
	if targetCurrent <= standard && targetNew > standard {
		result.Impact.TargetEmployeeImpact.OvertimeChange = targetNew - standard
	}
}

// recommendation 生成换班建议
func recommendation(result *Evaluation) string {
	if !result.Feasible {
		return "不建议进行此换班，存在硬约束冲突"
	}

	switch {
	case result.Score >= 90:
		return "强烈推荐，换班后整体效果良好"
	case result.Score >= 70:
		return "可以进行，但存在一些软约束问题"
	case result.Score >= 50:
		return "谨慎进行，可能影响整体排班质量"
	default:
		return "不推荐，虽然可行但会显著降低排班质量"
	}
}
