package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RuleType 规则类型
type RuleType string

const (
	RuleAvailabilityOverride RuleType = "availability_override" // 指定日期覆盖每周可用性
	RuleMaxHours             RuleType = "max_hours"             // 周最大工时
	RuleMinHours             RuleType = "min_hours"             // 周最小工时
	RuleRestPeriod           RuleType = "rest_period"           // 班次间最小休息
	RulePreferredShift       RuleType = "preferred_shift"       // 偏好班次
	RuleBlockedShift         RuleType = "blocked_shift"         // 禁止班次
	RuleSkillRequirement     RuleType = "skill_requirement"     // 技能要求
	RuleCustom               RuleType = "custom"                // 自定义
)

// Rule 结构化排班规则
//
// Params 依据 Type 为不同的具体类型，加载时通过 ParseRuleParams
// 解析并校验。EmployeeID 为空表示对全员生效。
type Rule struct {
	BaseModel
	Type       RuleType   `json:"type" db:"type"`
	EmployeeID *uuid.UUID `json:"employee_id,omitempty" db:"employee_id"`
	Priority   int        `json:"priority" db:"priority"` // 1-10
	Active     bool       `json:"active" db:"active"`
	Params     RuleParams `json:"params" db:"params"`
}

// RuleParams 规则参数载荷
type RuleParams interface {
	Validate() error
}

// Hard 规则是否为硬约束
// 可用性、最大工时、休息时间、技能要求恒为硬约束；
// 偏好/禁止班次在优先级达到阈值时按硬约束处理
func (r *Rule) Hard(overrideThreshold int) bool {
	switch r.Type {
	case RuleAvailabilityOverride, RuleMaxHours, RuleRestPeriod, RuleSkillRequirement:
		return true
	case RulePreferredShift, RuleBlockedShift:
		return r.Priority >= overrideThreshold
	default:
		return false
	}
}

// AppliesTo 规则是否作用于指定员工
func (r *Rule) AppliesTo(employeeID uuid.UUID) bool {
	return r.EmployeeID == nil || *r.EmployeeID == employeeID
}

// AvailabilityOverrideParams 指定日期的可用性覆盖
// 覆盖当日的每周可用性声明
type AvailabilityOverrideParams struct {
	Date  string             `json:"date"` // YYYY-MM-DD
	Slots []AvailabilitySlot `json:"slots"`
}

func (p *AvailabilityOverrideParams) Validate() error {
	if _, err := time.Parse(DateFormat, p.Date); err != nil {
		return fmt.Errorf("日期格式无效: %s", p.Date)
	}
	for _, slot := range p.Slots {
		if err := validateClockPair(slot.Start, slot.End); err != nil {
			return err
		}
	}
	return nil
}

// MaxHoursParams 周最大工时
type MaxHoursParams struct {
	HoursPerWeek float64 `json:"hours_per_week"`
}

func (p *MaxHoursParams) Validate() error {
	if p.HoursPerWeek <= 0 {
		return fmt.Errorf("周最大工时必须为正数: %.1f", p.HoursPerWeek)
	}
	return nil
}

// MinHoursParams 周最小工时（软目标）
type MinHoursParams struct {
	HoursPerWeek float64 `json:"hours_per_week"`
}

func (p *MinHoursParams) Validate() error {
	if p.HoursPerWeek <= 0 {
		return fmt.Errorf("周最小工时必须为正数: %.1f", p.HoursPerWeek)
	}
	return nil
}

// RestPeriodParams 班次间最小休息时间
type RestPeriodParams struct {
	MinRestHours float64 `json:"min_rest_hours"`
}

func (p *RestPeriodParams) Validate() error {
	if p.MinRestHours <= 0 {
		return fmt.Errorf("最小休息时间必须为正数: %.1f", p.MinRestHours)
	}
	return nil
}

// ShiftSelectorParams 班次选择器，用于偏好/禁止班次
// ShiftIDs 与 ShiftTypes 至少填写一项，两者为并集关系
type ShiftSelectorParams struct {
	ShiftIDs   []uuid.UUID `json:"shift_ids,omitempty"`
	ShiftTypes []string    `json:"shift_types,omitempty"`
	Weekdays   []int       `json:"weekdays,omitempty"` // 0=周日
}

func (p *ShiftSelectorParams) Validate() error {
	if len(p.ShiftIDs) == 0 && len(p.ShiftTypes) == 0 && len(p.Weekdays) == 0 {
		return fmt.Errorf("班次选择器不能为空")
	}
	for _, d := range p.Weekdays {
		if d < 0 || d > 6 {
			return fmt.Errorf("星期超出范围 [0,6]: %d", d)
		}
	}
	return nil
}

// Matches 选择器是否命中指定班次
func (p *ShiftSelectorParams) Matches(shift *Shift) bool {
	for _, id := range p.ShiftIDs {
		if id == shift.ID {
			return true
		}
	}
	for _, t := range p.ShiftTypes {
		if t == shift.Type {
			return true
		}
	}
	if len(p.Weekdays) > 0 {
		if day, err := Weekday(shift.Date); err == nil {
			for _, d := range p.Weekdays {
				if time.Weekday(d) == day {
					return true
				}
			}
		}
	}
	return false
}

// SkillRequirementParams 附加技能要求
// 对命中的班次追加资质/技能门槛
type SkillRequirementParams struct {
	ShiftTypes     []string `json:"shift_types,omitempty"`
	Qualifications []string `json:"qualifications,omitempty"`
	Skills         []string `json:"skills,omitempty"`
}

func (p *SkillRequirementParams) Validate() error {
	if len(p.Qualifications) == 0 && len(p.Skills) == 0 {
		return fmt.Errorf("技能要求规则必须至少指定一项资质或技能")
	}
	return nil
}

// CustomParams 自定义规则的不透明载荷，引擎按惩罚权重处理
type CustomParams struct {
	Name    string  `json:"name"`
	Penalty float64 `json:"penalty"`
	Payload JSONMap `json:"payload,omitempty"`
}

func (p *CustomParams) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("自定义规则必须有名称")
	}
	if p.Penalty < 0 {
		return fmt.Errorf("惩罚值不能为负数: %.1f", p.Penalty)
	}
	return nil
}

// ParseRuleParams 按规则类型解析参数载荷并校验
func ParseRuleParams(ruleType RuleType, raw json.RawMessage) (RuleParams, error) {
	var params RuleParams
	switch ruleType {
	case RuleAvailabilityOverride:
		params = &AvailabilityOverrideParams{}
	case RuleMaxHours:
		params = &MaxHoursParams{}
	case RuleMinHours:
		params = &MinHoursParams{}
	case RuleRestPeriod:
		params = &RestPeriodParams{}
	case RulePreferredShift, RuleBlockedShift:
		params = &ShiftSelectorParams{}
	case RuleSkillRequirement:
		params = &SkillRequirementParams{}
	case RuleCustom:
		params = &CustomParams{}
	default:
		return nil, fmt.Errorf("未知规则类型: %s", ruleType)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, params); err != nil {
			return nil, fmt.Errorf("规则参数解析失败: %w", err)
		}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// ruleEnvelope Rule 的 JSON 序列化中间形态
type ruleEnvelope struct {
	BaseModel
	Type       RuleType        `json:"type"`
	EmployeeID *uuid.UUID      `json:"employee_id,omitempty"`
	Priority   int             `json:"priority"`
	Active     bool            `json:"active"`
	Params     json.RawMessage `json:"params"`
}

// UnmarshalJSON 解析规则并按类型实例化参数
func (r *Rule) UnmarshalJSON(data []byte) error {
	var env ruleEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	params, err := ParseRuleParams(env.Type, env.Params)
	if err != nil {
		return err
	}
	r.BaseModel = env.BaseModel
	r.Type = env.Type
	r.EmployeeID = env.EmployeeID
	r.Priority = env.Priority
	r.Active = env.Active
	r.Params = params
	return nil
}

func validateClockPair(start, end string) error {
	if _, err := time.Parse(ClockFormat, start); err != nil {
		return fmt.Errorf("开始时间格式无效: %s", start)
	}
	// "24:00" 表示当日结束，仅允许作为结束时刻
	if end != "24:00" {
		if _, err := time.Parse(ClockFormat, end); err != nil {
			return fmt.Errorf("结束时间格式无效: %s", end)
		}
	}
	if end <= start {
		return fmt.Errorf("时间段结束必须晚于开始: %s-%s", start, end)
	}
	return nil
}
