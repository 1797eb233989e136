package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/internal/repository"
	"github.com/banbiao/banbiao/internal/rulelib"
	"github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/model"
)

// RuleHandler 规则处理器
type RuleHandler struct {
	rules *repository.RuleRepository
}

// NewRuleHandler 创建规则处理器
func NewRuleHandler(rules *repository.RuleRepository) *RuleHandler {
	return &RuleHandler{rules: rules}
}

// Catalog 获取规则类型目录
// GET /api/v1/rules/catalog
func (h *RuleHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"catalog": rulelib.Catalog(),
	})
}

// ruleInput 规则创建/更新输入
type ruleInput struct {
	Type       model.RuleType  `json:"type"`
	EmployeeID *uuid.UUID      `json:"employee_id,omitempty"`
	Priority   int             `json:"priority"`
	Active     bool            `json:"active"`
	Params     json.RawMessage `json:"params"`
}

func (in *ruleInput) toRule() (*model.Rule, error) {
	if !rulelib.Known(in.Type) {
		return nil, errors.InvalidInput("type", "未知规则类型: "+string(in.Type))
	}
	if in.Priority < 1 || in.Priority > 10 {
		return nil, errors.InvalidInput("priority", "优先级超出范围 [1,10]")
	}
	params, err := model.ParseRuleParams(in.Type, in.Params)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "规则参数无效")
	}
	return &model.Rule{
		Type:       in.Type,
		EmployeeID: in.EmployeeID,
		Priority:   in.Priority,
		Active:     in.Active,
		Params:     params,
	}, nil
}

// Create 创建规则
// POST /api/v1/rules
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in ruleInput
	if err := decodeBody(r, &in); err != nil {
		respondError(w, err)
		return
	}

	rule, err := in.toRule()
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.rules.Create(r.Context(), rule); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "创建规则失败"))
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}

// Get 获取规则
// GET /api/v1/rules/{id}
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	rule, err := h.rules.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询规则失败"))
		return
	}
	if rule == nil {
		respondError(w, errors.NotFound("规则", id.String()))
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

// Update 更新规则
// PUT /api/v1/rules/{id}
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var in ruleInput
	if err := decodeBody(r, &in); err != nil {
		respondError(w, err)
		return
	}

	rule, err := in.toRule()
	if err != nil {
		respondError(w, err)
		return
	}
	rule.ID = id

	if err := h.rules.Update(r.Context(), rule); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "更新规则失败"))
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

// Delete 删除规则
// DELETE /api/v1/rules/{id}
func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.rules.Delete(r.Context(), id); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "删除规则失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// List 查询规则列表
// GET /api/v1/rules
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.DefaultListFilter().WithLimit(200)
	filter.Extra = map[string]interface{}{}

	q := r.URL.Query()
	if ruleType := q.Get("type"); ruleType != "" {
		filter.Extra["type"] = ruleType
	}
	if empID := q.Get("employee_id"); empID != "" {
		id, err := uuid.Parse(empID)
		if err != nil {
			respondError(w, errors.InvalidInput("employee_id", "无效的UUID"))
			return
		}
		filter.Extra["employee_id"] = id
	}

	rules, total, err := h.rules.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询规则失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rules": rules,
		"total": total,
	})
}
