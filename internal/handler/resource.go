package handler

import (
	"net/http"

	"github.com/banbiao/banbiao/internal/repository"
	"github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/model"
)

// EmployeeHandler 员工处理器
type EmployeeHandler struct {
	employees *repository.EmployeeRepository
}

// NewEmployeeHandler 创建员工处理器
func NewEmployeeHandler(employees *repository.EmployeeRepository) *EmployeeHandler {
	return &EmployeeHandler{employees: employees}
}

// Create 创建员工
// POST /api/v1/employees
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var emp model.Employee
	if err := decodeBody(r, &emp); err != nil {
		respondError(w, err)
		return
	}
	if emp.Name == "" {
		respondError(w, errors.InvalidInput("name", "员工姓名必填"))
		return
	}
	if emp.Status == "" {
		emp.Status = "active"
	}

	if err := h.employees.Create(r.Context(), &emp); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "创建员工失败"))
		return
	}

	respondJSON(w, http.StatusCreated, &emp)
}

// Get 获取员工
// GET /api/v1/employees/{id}
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	emp, err := h.employees.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询员工失败"))
		return
	}
	if emp == nil {
		respondError(w, errors.NotFound("员工", id.String()))
		return
	}

	respondJSON(w, http.StatusOK, emp)
}

// Update 更新员工
// PUT /api/v1/employees/{id}
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var emp model.Employee
	if err := decodeBody(r, &emp); err != nil {
		respondError(w, err)
		return
	}
	emp.ID = id

	if err := h.employees.Update(r.Context(), &emp); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "更新员工失败"))
		return
	}

	respondJSON(w, http.StatusOK, &emp)
}

// Delete 删除员工
// DELETE /api/v1/employees/{id}
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.employees.Delete(r.Context(), id); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "删除员工失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// List 查询员工列表
// GET /api/v1/employees
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.DefaultListFilter().WithLimit(100)
	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		filter = filter.WithStatus(status)
	}
	if search := q.Get("search"); search != "" {
		filter.Search = search
	}
	if dept := q.Get("department"); dept != "" {
		filter.Extra = map[string]interface{}{"department": dept}
	}

	employees, total, err := h.employees.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询员工失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"employees": employees,
		"total":     total,
	})
}

// ShiftHandler 班次处理器
type ShiftHandler struct {
	shifts *repository.ShiftRepository
}

// NewShiftHandler 创建班次处理器
func NewShiftHandler(shifts *repository.ShiftRepository) *ShiftHandler {
	return &ShiftHandler{shifts: shifts}
}

// Create 创建班次
// POST /api/v1/shifts
func (h *ShiftHandler) Create(w http.ResponseWriter, r *http.Request) {
	var shift model.Shift
	if err := decodeBody(r, &shift); err != nil {
		respondError(w, err)
		return
	}

	if err := h.shifts.Create(r.Context(), &shift); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeValidationFail, "创建班次失败").WithCause(err))
		return
	}

	respondJSON(w, http.StatusCreated, &shift)
}

// CreateBatch 批量创建班次
// POST /api/v1/shifts/batch
func (h *ShiftHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Shifts []*model.Shift `json:"shifts"`
	}
	if err := decodeBody(r, &in); err != nil {
		respondError(w, err)
		return
	}
	if len(in.Shifts) == 0 {
		respondError(w, errors.InvalidInput("shifts", "班次列表不能为空"))
		return
	}

	if err := h.shifts.CreateBatch(r.Context(), in.Shifts); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeValidationFail, "批量创建班次失败"))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"created": len(in.Shifts),
		"shifts":  in.Shifts,
	})
}

// Get 获取班次
// GET /api/v1/shifts/{id}
func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	shift, err := h.shifts.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询班次失败"))
		return
	}
	if shift == nil {
		respondError(w, errors.NotFound("班次", id.String()))
		return
	}

	respondJSON(w, http.StatusOK, shift)
}

// Update 更新班次
// PUT /api/v1/shifts/{id}
func (h *ShiftHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var shift model.Shift
	if err := decodeBody(r, &shift); err != nil {
		respondError(w, err)
		return
	}
	shift.ID = id

	if err := h.shifts.Update(r.Context(), &shift); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeValidationFail, "更新班次失败"))
		return
	}

	respondJSON(w, http.StatusOK, &shift)
}

// Delete 删除班次
// DELETE /api/v1/shifts/{id}
func (h *ShiftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.shifts.Delete(r.Context(), id); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "删除班次失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// List 查询班次列表
// GET /api/v1/shifts
func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.DefaultListFilter().WithLimit(200)
	q := r.URL.Query()
	if start, end := q.Get("start_date"), q.Get("end_date"); start != "" || end != "" {
		filter = filter.WithDateRange(start, end)
	}
	if shiftType := q.Get("type"); shiftType != "" {
		filter.Extra = map[string]interface{}{"type": shiftType}
	}

	shifts, total, err := h.shifts.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询班次失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"shifts": shifts,
		"total":  total,
	})
}
