// Package loader 组装求解所需的数据快照
package loader

import (
	"context"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/internal/repository"
	apperrors "github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/logger"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
)

// Loader 从仓储加载排班输入并组装为不可变快照
type Loader struct {
	employees *repository.EmployeeRepository
	shifts    *repository.ShiftRepository
	rules     *repository.RuleRepository
	schedules *repository.ScheduleRepository
}

// New 创建数据加载器
func New(
	employees *repository.EmployeeRepository,
	shifts *repository.ShiftRepository,
	rules *repository.RuleRepository,
	schedules *repository.ScheduleRepository,
) *Loader {
	return &Loader{
		employees: employees,
		shifts:    shifts,
		rules:     rules,
		schedules: schedules,
	}
}

// Load 加载日期范围内的排班输入
//
// 任一数据源不可达时返回 DataUnavailable，绝不使用部分数据求解。
// 有班次但没有在职员工时返回 EmptyInput；没有班次返回空快照。
func (l *Loader) Load(ctx context.Context, scheduleID uuid.UUID, dateRange model.DateRange) (*builder.Snapshot, error) {
	if err := dateRange.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidTimeRange, "排班周期无效")
	}

	employees, err := l.employees.ListActive(ctx)
	if err != nil {
		return nil, apperrors.DataUnavailable("employees", err)
	}

	shifts, err := l.shifts.ListByDateRange(ctx, dateRange.StartDate, dateRange.EndDate)
	if err != nil {
		return nil, apperrors.DataUnavailable("shifts", err)
	}

	rules, err := l.rules.ListActive(ctx)
	if err != nil {
		return nil, apperrors.DataUnavailable("rules", err)
	}

	var assignments []*model.Assignment
	if scheduleID != uuid.Nil {
		assignments, err = l.schedules.GetAssignments(ctx, scheduleID)
		if err != nil {
			return nil, apperrors.DataUnavailable("assignments", err)
		}
	}

	snapshot := &builder.Snapshot{
		StartDate:   dateRange.StartDate,
		EndDate:     dateRange.EndDate,
		Employees:   employees,
		Shifts:      shifts,
		Rules:       rules,
		Assignments: assignments,
	}

	// 周期内没有班次是合法的空状态，由调用方报告"没有可排内容"；
	// 有班次却没有在职员工才是输入错误
	if len(shifts) > 0 && len(employees) == 0 {
		return nil, apperrors.New(apperrors.CodeEmptyInput, "排班周期内没有在职员工")
	}

	logger.Debug().
		Str("start_date", dateRange.StartDate).
		Str("end_date", dateRange.EndDate).
		Int("employees", len(employees)).
		Int("shifts", len(shifts)).
		Int("rules", len(rules)).
		Int("assignments", len(assignments)).
		Msg("排班数据加载完成")

	return snapshot, nil
}
