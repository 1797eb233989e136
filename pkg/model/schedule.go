package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// 分配状态
const (
	AssignmentStatusAssigned  = "assigned"
	AssignmentStatusPending   = "pending"
	AssignmentStatusConfirmed = "confirmed"
	AssignmentStatusDeclined  = "declined"
	AssignmentStatusCancelled = "cancelled"
	AssignmentStatusCompleted = "completed"
)

// 排班表状态
const (
	ScheduleStatusDraft           = "draft"
	ScheduleStatusPendingApproval = "pending_approval"
	ScheduleStatusApproved        = "approved"
	ScheduleStatusRejected        = "rejected"
	ScheduleStatusPublished       = "published"
	ScheduleStatusArchived        = "archived"
)

// Assignment 员工与班次的一次分配
type Assignment struct {
	BaseModel
	ScheduleID uuid.UUID `json:"schedule_id" db:"schedule_id"`
	ShiftID    uuid.UUID `json:"shift_id" db:"shift_id"`
	EmployeeID uuid.UUID `json:"employee_id" db:"employee_id"`
	Date       string    `json:"date" db:"date"`
	StartTime  time.Time `json:"start_time" db:"start_time"`
	EndTime    time.Time `json:"end_time" db:"end_time"`
	Status     string    `json:"status" db:"status"`

	AutoAssigned       bool   `json:"auto_assigned" db:"auto_assigned"`
	ConflictsResolved  bool   `json:"conflicts_resolved" db:"conflicts_resolved"`
	RequirementRelaxed bool   `json:"requirement_relaxed" db:"requirement_relaxed"`
	Notes              string `json:"notes,omitempty" db:"notes"`

	// 换班产生的分配记录原承接人
	Swapped            bool       `json:"swapped,omitempty" db:"swapped"`
	OriginalEmployeeID *uuid.UUID `json:"original_employee_id,omitempty" db:"original_employee_id"`
}

// Pinned 分配是否已锁定，锁定的分配在重新优化时不可移动
func (a *Assignment) Pinned() bool {
	return a.Status == AssignmentStatusConfirmed || a.Status == AssignmentStatusCompleted
}

// Countable 分配是否计入覆盖与工时统计
func (a *Assignment) Countable() bool {
	return a.Status != AssignmentStatusDeclined && a.Status != AssignmentStatusCancelled
}

// WorkingHours 分配的工作时长（小时）
func (a *Assignment) WorkingHours() float64 {
	return a.EndTime.Sub(a.StartTime).Hours()
}

// Overlaps 两次分配是否时间重叠
func (a *Assignment) Overlaps(other *Assignment) bool {
	return a.StartTime.Before(other.EndTime) && other.StartTime.Before(a.EndTime)
}

// Schedule 排班表
type Schedule struct {
	BaseModel
	Name      string `json:"name" db:"name"`
	StartDate string `json:"start_date" db:"start_date"`
	EndDate   string `json:"end_date" db:"end_date"`
	Status    string `json:"status" db:"status"`

	// 乐观并发控制版本号，每次写回递增
	Version int `json:"version" db:"version"`

	// 重新生成时指向来源排班表
	ParentScheduleID *uuid.UUID `json:"parent_schedule_id,omitempty" db:"parent_schedule_id"`

	ApprovedBy  string     `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`

	Assignments []*Assignment  `json:"assignments,omitempty" db:"-"`
	Stats       *ScheduleStats `json:"stats,omitempty" db:"stats"`
}

// ScheduleStats 排班表统计摘要
type ScheduleStats struct {
	TotalShifts      int     `json:"total_shifts"`
	FilledSlots      int     `json:"filled_slots"`
	RequiredSlots    int     `json:"required_slots"`
	CoverageRate     float64 `json:"coverage_rate"`
	TotalHours       float64 `json:"total_hours"`
	AvgHoursPerEmp   float64 `json:"avg_hours_per_employee"`
	HoursStdDev      float64 `json:"hours_std_dev"`
	RelaxedRules     int     `json:"relaxed_rules"`
	HardViolations   int     `json:"hard_violations"`
	SoftPenalty      float64 `json:"soft_penalty"`
	SolveDurationMS  int64   `json:"solve_duration_ms"`
	SolverStatus     string  `json:"solver_status,omitempty"`
}

// scheduleTransitions 排班表状态机
var scheduleTransitions = map[string][]string{
	ScheduleStatusDraft:           {ScheduleStatusPendingApproval, ScheduleStatusArchived},
	ScheduleStatusPendingApproval: {ScheduleStatusApproved, ScheduleStatusRejected, ScheduleStatusArchived},
	ScheduleStatusApproved:        {ScheduleStatusPublished, ScheduleStatusArchived},
	ScheduleStatusRejected:        {ScheduleStatusDraft, ScheduleStatusArchived},
	ScheduleStatusPublished:       {ScheduleStatusArchived},
}

// CanTransition 检查状态迁移是否合法
func (s *Schedule) CanTransition(target string) bool {
	for _, next := range scheduleTransitions[s.Status] {
		if next == target {
			return true
		}
	}
	return false
}

// Transition 执行状态迁移
func (s *Schedule) Transition(target string) error {
	if !s.CanTransition(target) {
		return fmt.Errorf("排班表状态不允许从 %s 迁移到 %s", s.Status, target)
	}
	s.Status = target
	s.UpdatedAt = time.Now()
	// 发布时刻与状态迁移同时落定
	if target == ScheduleStatusPublished {
		now := s.UpdatedAt
		s.PublishedAt = &now
	}
	return nil
}

// Approve 审批通过，记录审批人与时间
func (s *Schedule) Approve(approver string) error {
	if err := s.Transition(ScheduleStatusApproved); err != nil {
		return err
	}
	now := time.Now()
	s.ApprovedBy = approver
	s.ApprovedAt = &now
	return nil
}

// Editable 排班表是否允许重新生成或优化
func (s *Schedule) Editable() bool {
	return s.Status == ScheduleStatusDraft || s.Status == ScheduleStatusRejected
}

// Range 返回排班表的日期范围
func (s *Schedule) Range() DateRange {
	return DateRange{StartDate: s.StartDate, EndDate: s.EndDate}
}
