package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/internal/loader"
	"github.com/banbiao/banbiao/internal/repository"
	"github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint/builtin"
	"github.com/banbiao/banbiao/pkg/swap"
)

// SwapHandler 换班处理器
type SwapHandler struct {
	schedules *repository.ScheduleRepository
	loader    *loader.Loader
	settings  constraint.Settings
}

// NewSwapHandler 创建换班处理器
func NewSwapHandler(schedules *repository.ScheduleRepository, dataLoader *loader.Loader, settings constraint.Settings) *SwapHandler {
	return &SwapHandler{schedules: schedules, loader: dataLoader, settings: settings}
}

// scheduleContext 组装排班表的约束上下文与换班推荐器
func (h *SwapHandler) scheduleContext(r *http.Request, scheduleID uuid.UUID) (*constraint.Context, *swap.Recommender, error) {
	schedule, err := h.schedules.GetByID(r.Context(), scheduleID)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeDatabaseError, "查询排班表失败")
	}
	if schedule == nil {
		return nil, nil, errors.NotFound("排班表", scheduleID.String())
	}

	snapshot, err := h.loader.Load(r.Context(), scheduleID, schedule.Range())
	if err != nil {
		return nil, nil, err
	}

	ctx := constraint.NewContext(scheduleID, snapshot.StartDate, snapshot.EndDate)
	ctx.Settings = h.settings
	ctx.SetEmployees(snapshot.Employees)
	ctx.SetShifts(snapshot.Shifts)
	ctx.SetRules(snapshot.Rules)
	ctx.SetAssignments(snapshot.Assignments)

	manager := constraint.NewManager()
	builtin.RegisterAll(manager, h.settings)

	return ctx, swap.NewRecommender(manager, h.settings), nil
}

// findAssignment 在上下文中按ID查找分配
func findAssignment(ctx *constraint.Context, assignmentID uuid.UUID) *model.Assignment {
	for _, a := range ctx.Assignments {
		if a.ID == assignmentID {
			return a
		}
	}
	return nil
}

// Recommend 推荐换班目标
// GET /api/v1/schedules/{id}/assignments/{assignment_id}/swap-candidates
func (h *SwapHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	assignmentID, err := pathID(r, "assignment_id")
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, recommender, err := h.scheduleContext(r, scheduleID)
	if err != nil {
		respondError(w, err)
		return
	}

	source := findAssignment(ctx, assignmentID)
	if source == nil {
		respondError(w, errors.NotFound("分配", assignmentID.String()))
		return
	}

	recommendations := recommender.RecommendTargets(ctx, source, nil)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"assignment_id":   assignmentID,
		"recommendations": recommendations,
	})
}

// AutoAssign 自动换班，返回替换后的分配
// POST /api/v1/schedules/{id}/assignments/{assignment_id}/auto-swap
func (h *SwapHandler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	assignmentID, err := pathID(r, "assignment_id")
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, recommender, err := h.scheduleContext(r, scheduleID)
	if err != nil {
		respondError(w, err)
		return
	}

	source := findAssignment(ctx, assignmentID)
	if source == nil {
		respondError(w, errors.NotFound("分配", assignmentID.String()))
		return
	}

	replacement := recommender.AutoAssign(ctx, source)
	if replacement == nil {
		respondError(w, errors.New(errors.CodeNoEligibleEmployees, "没有满足换班要求的员工"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"original":    source,
		"replacement": replacement,
	})
}
