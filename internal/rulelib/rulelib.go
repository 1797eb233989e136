// Package rulelib 提供规则类型目录
//
// 供前端和API消费的规则元数据：每种规则的参数结构、
// 硬/软分类、取值范围。与 pkg/model 的规则参数类型一一对应。
package rulelib

import (
	"github.com/banbiao/banbiao/pkg/model"
)

// ParamSpec 规则参数定义
type ParamSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float, string, bool, array
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// RuleDefinition 规则类型定义
type RuleDefinition struct {
	Type        model.RuleType `json:"type"`
	DisplayName string         `json:"display_name"`
	Enforcement string         `json:"enforcement"` // hard / soft / priority_based
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Params      []ParamSpec    `json:"params"`
}

// Catalog 返回完整的规则类型目录
func Catalog() []RuleDefinition {
	return []RuleDefinition{
		{
			Type:        model.RuleAvailabilityOverride,
			DisplayName: "指定日期可用性覆盖",
			Enforcement: "hard",
			Category:    "时间限制",
			Description: "覆盖员工在特定日期的每周可用性声明，用于请假、临时可用等场景。",
			Params: []ParamSpec{
				{Name: "date", Type: "string", Description: "日期 YYYY-MM-DD", Required: true},
				{Name: "slots", Type: "array", Description: "时间段列表，每段含 start/end/available", Required: true},
			},
		},
		{
			Type:        model.RuleMaxHours,
			DisplayName: "每周最大工时",
			Enforcement: "hard",
			Category:    "工时限制",
			Description: "限制员工每周的累计工作时长，确保符合劳动法规定。",
			Params: []ParamSpec{
				{Name: "hours_per_week", Type: "float", Description: "最大工时(小时)", Default: "40", Min: "8", Max: "80", Required: true},
			},
		},
		{
			Type:        model.RuleMinHours,
			DisplayName: "每周最小工时",
			Enforcement: "soft",
			Category:    "工时限制",
			Description: "确保员工每周有足够的排班，保障基本工作量。未达标按缺口计惩罚。",
			Params: []ParamSpec{
				{Name: "hours_per_week", Type: "float", Description: "最小工时(小时)", Default: "20", Min: "1", Max: "40", Required: true},
			},
		},
		{
			Type:        model.RuleRestPeriod,
			DisplayName: "班次间最小休息时间",
			Enforcement: "hard",
			Category:    "休息保障",
			Description: "确保员工在两个班次之间有足够的休息时间，防止过度疲劳。",
			Params: []ParamSpec{
				{Name: "min_rest_hours", Type: "float", Description: "最小休息时间(小时)", Default: "11", Min: "1", Max: "24", Required: true},
			},
		},
		{
			Type:        model.RulePreferredShift,
			DisplayName: "偏好班次",
			Enforcement: "priority_based",
			Category:    "偏好",
			Description: "员工偏好的班次或班次类型，优先级达到阈值时按硬约束处理，否则作为优化目标。",
			Params: []ParamSpec{
				{Name: "shift_ids", Type: "array", Description: "班次ID列表"},
				{Name: "shift_types", Type: "array", Description: "班次类型列表"},
				{Name: "weekdays", Type: "array", Description: "星期列表，0=周日"},
			},
		},
		{
			Type:        model.RuleBlockedShift,
			DisplayName: "禁止班次",
			Enforcement: "priority_based",
			Category:    "偏好",
			Description: "员工不应承接的班次或班次类型，优先级达到阈值时按硬约束处理。",
			Params: []ParamSpec{
				{Name: "shift_ids", Type: "array", Description: "班次ID列表"},
				{Name: "shift_types", Type: "array", Description: "班次类型列表"},
				{Name: "weekdays", Type: "array", Description: "星期列表，0=周日"},
			},
		},
		{
			Type:        model.RuleSkillRequirement,
			DisplayName: "附加技能要求",
			Enforcement: "hard",
			Category:    "资质要求",
			Description: "对命中的班次类型追加资质或技能门槛，叠加在班次自身要求之上。",
			Params: []ParamSpec{
				{Name: "shift_types", Type: "array", Description: "适用的班次类型，为空表示全部"},
				{Name: "qualifications", Type: "array", Description: "必需资质列表"},
				{Name: "skills", Type: "array", Description: "必需技能列表"},
			},
		},
		{
			Type:        model.RuleCustom,
			DisplayName: "自定义规则",
			Enforcement: "soft",
			Category:    "扩展",
			Description: "不透明载荷的自定义规则，引擎按固定惩罚权重参与评分。",
			Params: []ParamSpec{
				{Name: "name", Type: "string", Description: "规则名称", Required: true},
				{Name: "penalty", Type: "float", Description: "违反时的惩罚", Default: "10", Min: "0"},
				{Name: "payload", Type: "object", Description: "自定义数据"},
			},
		},
	}
}

// Lookup 按类型查找规则定义
func Lookup(ruleType model.RuleType) (RuleDefinition, bool) {
	for _, def := range Catalog() {
		if def.Type == ruleType {
			return def, true
		}
	}
	return RuleDefinition{}, false
}

// Known 规则类型是否已注册
func Known(ruleType model.RuleType) bool {
	_, ok := Lookup(ruleType)
	return ok
}
