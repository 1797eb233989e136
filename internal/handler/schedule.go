package handler

import (
	"net/http"

	"github.com/banbiao/banbiao/internal/repository"
	"github.com/banbiao/banbiao/internal/service"
	"github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/model"
)

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	svc       *service.Service
	schedules *repository.ScheduleRepository
}

// NewScheduleHandler 创建排班处理器
func NewScheduleHandler(svc *service.Service, schedules *repository.ScheduleRepository) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, schedules: schedules}
}

// Generate 生成排班
// POST /api/v1/schedules/generate
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req service.GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if req.StartDate == "" || req.EndDate == "" {
		respondError(w, errors.InvalidInput("start_date/end_date", "排班周期必填"))
		return
	}

	result, err := h.svc.Generate(r.Context(), req)
	if err != nil {
		// 写入失败时求解结果随错误一并返回，供调用方检查后重试
		if result != nil && errors.Is(err, errors.CodePersistenceFailure) {
			respondErrorWithPayload(w, err, result)
			return
		}
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Validate 校验调用方给定的分配集合
// POST /api/v1/schedules/validate
func (h *ScheduleHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req service.ValidateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	report, err := h.svc.ValidateAssignments(req)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// Optimize 优化既有排班
// POST /api/v1/schedules/{id}/optimize
func (h *ScheduleHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := h.svc.Optimize(r.Context(), service.OptimizeRequest{ScheduleID: id})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// CheckConflicts 冲突检查
// GET /api/v1/schedules/{id}/conflicts
func (h *ScheduleHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	report, err := h.svc.CheckConflicts(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// Get 获取排班表及分配
// GET /api/v1/schedules/{id}
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	schedule, err := h.schedules.GetWithAssignments(r.Context(), id)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询排班表失败"))
		return
	}
	if schedule == nil {
		respondError(w, errors.NotFound("排班表", id.String()))
		return
	}

	respondJSON(w, http.StatusOK, schedule)
}

// List 查询排班表列表
// GET /api/v1/schedules
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.DefaultListFilter()
	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		filter = filter.WithStatus(status)
	}
	if start, end := q.Get("start_date"), q.Get("end_date"); start != "" || end != "" {
		filter = filter.WithDateRange(start, end)
	}

	schedules, total, err := h.schedules.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询排班表失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"schedules": schedules,
		"total":     total,
	})
}

// transitionRequest 状态流转请求
type transitionRequest struct {
	Actor string `json:"actor,omitempty"`
}

// Submit 提交审批
// POST /api/v1/schedules/{id}/submit
func (h *ScheduleHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, model.ScheduleStatusPendingApproval)
}

// Approve 审批通过
// POST /api/v1/schedules/{id}/approve
func (h *ScheduleHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, model.ScheduleStatusApproved)
}

// Reject 审批驳回
// POST /api/v1/schedules/{id}/reject
func (h *ScheduleHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, model.ScheduleStatusRejected)
}

// Publish 发布排班
// POST /api/v1/schedules/{id}/publish
func (h *ScheduleHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, model.ScheduleStatusPublished)
}

// Archive 归档排班
// POST /api/v1/schedules/{id}/archive
func (h *ScheduleHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, model.ScheduleStatusArchived)
}

func (h *ScheduleHandler) transition(w http.ResponseWriter, r *http.Request, target string) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req transitionRequest
	_ = decodeBody(r, &req) // 请求体可选

	schedule, err := h.svc.Transition(r.Context(), id, target, req.Actor)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, schedule)
}

// Delete 删除排班表
// DELETE /api/v1/schedules/{id}
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.schedules.Delete(r.Context(), id); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "删除排班表失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// EmployeeAssignments 获取员工在日期范围内的分配
// GET /api/v1/employees/{id}/assignments
func (h *ScheduleHandler) EmployeeAssignments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	q := r.URL.Query()
	start, end := q.Get("start_date"), q.Get("end_date")
	if start == "" || end == "" {
		respondError(w, errors.InvalidInput("start_date/end_date", "日期范围必填"))
		return
	}

	assignments, err := h.schedules.GetAssignmentsByEmployee(r.Context(), id, start, end)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询分配失败"))
		return
	}
	if assignments == nil {
		assignments = []*model.Assignment{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"employee_id": id,
		"assignments": assignments,
	})
}
