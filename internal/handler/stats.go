package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/internal/loader"
	"github.com/banbiao/banbiao/internal/repository"
	"github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/stats"
)

// StatsHandler 排班统计处理器
type StatsHandler struct {
	schedules           *repository.ScheduleRepository
	loader              *loader.Loader
	standardWeeklyHours float64
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(schedules *repository.ScheduleRepository, dataLoader *loader.Loader, standardWeeklyHours float64) *StatsHandler {
	return &StatsHandler{
		schedules:           schedules,
		loader:              dataLoader,
		standardWeeklyHours: standardWeeklyHours,
	}
}

// ScheduleStatsResponse 排班统计响应
type ScheduleStatsResponse struct {
	ScheduleID uuid.UUID              `json:"schedule_id"`
	Coverage   *stats.CoverageMetrics `json:"coverage"`
	Fairness   *stats.FairnessMetrics `json:"fairness"`
}

// Get 获取排班表的覆盖与公平性统计
// GET /api/v1/schedules/{id}/stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	schedule, err := h.schedules.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询排班表失败"))
		return
	}
	if schedule == nil {
		respondError(w, errors.NotFound("排班表", id.String()))
		return
	}

	snapshot, err := h.loader.Load(r.Context(), id, schedule.Range())
	if err != nil {
		respondError(w, err)
		return
	}

	coverage := stats.NewCoverageAnalyzer().Analyze(snapshot.Shifts, snapshot.Assignments)
	fairness := stats.NewFairnessAnalyzer(h.standardWeeklyHours).Analyze(snapshot.Assignments, snapshot.Employees, snapshot.Shifts)

	respondJSON(w, http.StatusOK, &ScheduleStatsResponse{
		ScheduleID: id,
		Coverage:   coverage,
		Fairness:   fairness,
	})
}
