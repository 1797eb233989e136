package swap

import (
	"sort"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
)

// Recommender 换班推荐器
type Recommender struct {
	evaluator *Evaluator
}

// NewRecommender 创建换班推荐器
func NewRecommender(cm *constraint.Manager, settings constraint.Settings) *Recommender {
	return &Recommender{
		evaluator: NewEvaluator(cm, settings),
	}
}

// Recommendation 换班推荐
type Recommendation struct {
	TargetEmployee *model.Employee   `json:"target_employee"`
	Assignment     *model.Assignment `json:"assignment,omitempty"`
	Score          float64           `json:"score"`
	Reason         string            `json:"reason"`
	SwapType       string            `json:"swap_type"` // take_over/exchange
	ImpactSummary  string            `json:"impact_summary"`
	Rank           int               `json:"rank"`
}

// RecommendOptions 推荐选项
type RecommendOptions struct {
	MaxRecommendations int         // 最大推荐数量
	PreferredEmployees []uuid.UUID // 优先考虑的员工
	ExcludeEmployees   []uuid.UUID // 排除的员工
	AllowExchange      bool        // 是否允许互换
	MinScore           float64     // 最低得分
}

// DefaultRecommendOptions 返回默认选项
func DefaultRecommendOptions() *RecommendOptions {
	return &RecommendOptions{
		MaxRecommendations: 5,
		AllowExchange:      true,
		MinScore:           60,
	}
}

// RecommendTargets 推荐换班目标员工
func (r *Recommender) RecommendTargets(
	ctx *constraint.Context,
	sourceAssignment *model.Assignment,
	options *RecommendOptions,
) []Recommendation {
	if options == nil {
		options = DefaultRecommendOptions()
	}

	var candidates []Recommendation

	excludeSet := make(map[uuid.UUID]bool)
	excludeSet[sourceAssignment.EmployeeID] = true
	for _, id := range options.ExcludeEmployees {
		excludeSet[id] = true
	}

	preferredSet := make(map[uuid.UUID]bool)
	for _, id := range options.PreferredEmployees {
		preferredSet[id] = true
	}

	for _, emp := range ctx.Employees {
		if excludeSet[emp.ID] || !emp.IsActive() {
			continue
		}

		evaluation := r.evaluator.Evaluate(ctx, &Request{
			SourceAssignment: sourceAssignment,
			TargetEmployee:   emp,
		})

		if !evaluation.Feasible || evaluation.Score < options.MinScore {
			continue
		}

		candidate := Recommendation{
			TargetEmployee: emp,
			Score:          evaluation.Score,
			SwapType:       "take_over",
			Reason:         reason(evaluation),
			ImpactSummary:  impactSummary(evaluation),
		}

		if preferredSet[emp.ID] {
			candidate.Score += 10
		}

		candidates = append(candidates, candidate)

		if options.AllowExchange {
			candidates = append(candidates, r.findExchangeCandidates(ctx, sourceAssignment, emp, options)...)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > options.MaxRecommendations {
		candidates = candidates[:options.MaxRecommendations]
	}

	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	return candidates
}

// findExchangeCandidates 查找互换候选
func (r *Recommender) findExchangeCandidates(
	ctx *constraint.Context,
	sourceAssignment *model.Assignment,
	targetEmp *model.Employee,
	options *RecommendOptions,
) []Recommendation {
	var candidates []Recommendation

	for _, targetAss := range ctx.GetEmployeeAssignments(targetEmp.ID) {
		// 同一天互换没有意义
		if targetAss.Date == sourceAssignment.Date || !targetAss.Countable() {
			continue
		}

		evaluation := r.evaluator.Evaluate(ctx, &Request{
			SourceAssignment: sourceAssignment,
			TargetEmployee:   targetEmp,
			TargetAssignment: targetAss,
		})

		if !evaluation.Feasible || evaluation.Score < options.MinScore {
			continue
		}

		candidates = append(candidates, Recommendation{
			TargetEmployee: targetEmp,
			Assignment:     targetAss,
			Score:          evaluation.Score,
			SwapType:       "exchange",
			Reason:         "互换班次，双方工时更平衡",
			ImpactSummary:  impactSummary(evaluation),
		})
	}

	return candidates
}

// FindBestMatch 为请假员工找到最佳替换
func (r *Recommender) FindBestMatch(
	ctx *constraint.Context,
	employeeID uuid.UUID,
	date string,
) *Recommendation {
	var sourceAssignment *model.Assignment
	for _, a := range ctx.GetEmployeeAssignments(employeeID) {
		if a.Date == date && a.Countable() {
			sourceAssignment = a
			break
		}
	}
	if sourceAssignment == nil {
		return nil
	}

	recommendations := r.RecommendTargets(ctx, sourceAssignment, &RecommendOptions{
		MaxRecommendations: 1,
		MinScore:           50,
	})
	if len(recommendations) == 0 {
		return nil
	}

	return &recommendations[0]
}

// AutoAssign 自动分配换班，无合适目标时返回 nil
func (r *Recommender) AutoAssign(
	ctx *constraint.Context,
	sourceAssignment *model.Assignment,
) *model.Assignment {
	recommendations := r.RecommendTargets(ctx, sourceAssignment, &RecommendOptions{
		MaxRecommendations: 1,
		MinScore:           70, // 自动分配要求更高得分
	})
	if len(recommendations) == 0 {
		return nil
	}

	best := recommendations[0]

	replacement := *sourceAssignment
	replacement.ID = uuid.New()
	replacement.EmployeeID = best.TargetEmployee.ID
	replacement.Swapped = true
	replacement.OriginalEmployeeID = &sourceAssignment.EmployeeID

	return &replacement
}

// reason 生成推荐原因
func reason(evaluation *Evaluation) string {
	if len(evaluation.Issues) == 0 {
		return "无约束冲突"
	}

	warnings := 0
	for _, issue := range evaluation.Issues {
		if issue.Severity == "warning" {
			warnings++
		}
	}
	if warnings > 0 && warnings <= 2 {
		return "仅有少量软约束提醒"
	}

	return "可以接替此班次"
}

// impactSummary 生成影响摘要
func impactSummary(evaluation *Evaluation) string {
	if evaluation.Impact == nil || evaluation.Impact.TargetEmployeeImpact == nil {
		return "影响较小"
	}

	change := evaluation.Impact.TargetEmployeeImpact.HoursChange
	switch {
	case change > 0:
		return "目标员工增加工时，更接近平均水平"
	case change < 0:
		return "目标员工减少工时"
	default:
		return "对双方工时影响均衡"
	}
}
