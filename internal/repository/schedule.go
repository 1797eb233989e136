package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/internal/database"
	apperrors "github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/model"
)

const scheduleColumns = `id, name, start_date, end_date, status, version,
	parent_schedule_id, approved_by, approved_at, published_at, stats, created_at, updated_at`

const assignmentColumns = `id, schedule_id, shift_id, employee_id, date,
	start_time, end_time, status, auto_assigned, conflicts_resolved,
	requirement_relaxed, notes, swapped, original_employee_id, created_at, updated_at`

// ScheduleRepository 排班表仓储
type ScheduleRepository struct {
	db DB
}

// NewScheduleRepository 创建排班表仓储
func NewScheduleRepository(db DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create 创建排班表
func (r *ScheduleRepository) Create(ctx context.Context, schedule *model.Schedule) error {
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	if schedule.Status == "" {
		schedule.Status = model.ScheduleStatusDraft
	}
	if schedule.Version == 0 {
		schedule.Version = 1
	}
	now := time.Now()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	statsJSON, _ := json.Marshal(schedule.Stats)

	query := `
		INSERT INTO schedules (
			id, name, start_date, end_date, status, version,
			parent_schedule_id, approved_by, approved_at, published_at, stats, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID, schedule.Name, schedule.StartDate, schedule.EndDate,
		schedule.Status, schedule.Version, schedule.ParentScheduleID,
		schedule.ApprovedBy, schedule.ApprovedAt, schedule.PublishedAt, statsJSON,
		schedule.CreatedAt, schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建排班表失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取排班表
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE id = $1 AND deleted_at IS NULL`, scheduleColumns)
	return scanSchedule(r.db.QueryRowContext(ctx, query, id))
}

// GetWithAssignments 获取排班表及全部分配
func (r *ScheduleRepository) GetWithAssignments(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	schedule, err := r.GetByID(ctx, id)
	if err != nil || schedule == nil {
		return schedule, err
	}
	assignments, err := r.GetAssignments(ctx, id)
	if err != nil {
		return nil, err
	}
	schedule.Assignments = assignments
	return schedule, nil
}

// Update 更新排班表元数据，不带版本检查
func (r *ScheduleRepository) Update(ctx context.Context, schedule *model.Schedule) error {
	schedule.UpdatedAt = time.Now()

	statsJSON, _ := json.Marshal(schedule.Stats)

	query := `
		UPDATE schedules SET
			name = $2, status = $3, version = $4, approved_by = $5,
			approved_at = $6, published_at = $7, stats = $8, updated_at = $9
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		schedule.ID, schedule.Name, schedule.Status, schedule.Version,
		schedule.ApprovedBy, schedule.ApprovedAt, schedule.PublishedAt, statsJSON, schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新排班表失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("排班表不存在")
	}

	return nil
}

// Delete 软删除排班表
func (r *ScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE schedules SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除排班表失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("排班表不存在")
	}

	return nil
}

// List 查询排班表列表
func (r *ScheduleRepository) List(ctx context.Context, filter ListFilter) ([]*model.Schedule, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("end_date >= $%d", argIndex))
		args = append(args, filter.StartDate)
		argIndex++
	}

	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", argIndex))
		args = append(args, filter.EndDate)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM schedules WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "desc"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM schedules
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, scheduleColumns, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var schedules []*model.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, 0, err
		}
		schedules = append(schedules, schedule)
	}

	return schedules, total, nil
}

// GetAssignments 获取排班表的全部分配
func (r *ScheduleRepository) GetAssignments(ctx context.Context, scheduleID uuid.UUID) ([]*model.Assignment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM assignments
		WHERE schedule_id = $1 AND deleted_at IS NULL
		ORDER BY date, start_time
	`, assignmentColumns)

	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("查询分配失败: %w", err)
	}
	defer rows.Close()

	var assignments []*model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, nil
}

// GetAssignmentsByEmployee 获取员工在日期范围内的分配
func (r *ScheduleRepository) GetAssignmentsByEmployee(ctx context.Context, employeeID uuid.UUID, startDate, endDate string) ([]*model.Assignment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM assignments
		WHERE employee_id = $1 AND date >= $2 AND date <= $3 AND deleted_at IS NULL
		ORDER BY date, start_time
	`, assignmentColumns)

	rows, err := r.db.QueryContext(ctx, query, employeeID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("查询员工分配失败: %w", err)
	}
	defer rows.Close()

	var assignments []*model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, nil
}

// SaveResult 原子写回求解结果
//
// 在单个事务内完成：版本检查并递增、删除旧的未锁定分配、
// 写入新分配、更新统计摘要。版本不匹配说明排班表在求解期间
// 被并发修改，返回 ConcurrentModification 且不落任何改动。
func (r *ScheduleRepository) SaveResult(ctx context.Context, db *database.DB, schedule *model.Schedule, assignments []*model.Assignment) error {
	expectedVersion := schedule.Version

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		statsJSON, _ := json.Marshal(schedule.Stats)
		now := time.Now()

		result, err := tx.ExecContext(ctx, `
			UPDATE schedules SET
				version = version + 1, status = $3, stats = $4, updated_at = $5
			WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		`, schedule.ID, expectedVersion, schedule.Status, statsJSON, now)
		if err != nil {
			return fmt.Errorf("更新排班表失败: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return apperrors.ConcurrentModification(schedule.ID.String())
		}

		// 锁定的分配原样保留，其余替换为新的求解结果
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM assignments
			WHERE schedule_id = $1 AND status NOT IN ($2, $3)
		`, schedule.ID, model.AssignmentStatusConfirmed, model.AssignmentStatusCompleted); err != nil {
			return fmt.Errorf("清除旧分配失败: %w", err)
		}

		insertQuery := fmt.Sprintf(`
			INSERT INTO assignments (%s)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`, assignmentColumns)

		for _, a := range assignments {
			if a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			a.ScheduleID = schedule.ID
			if a.CreatedAt.IsZero() {
				a.CreatedAt = now
			}
			a.UpdatedAt = now

			if _, err := tx.ExecContext(ctx, insertQuery,
				a.ID, a.ScheduleID, a.ShiftID, a.EmployeeID, a.Date,
				a.StartTime, a.EndTime, a.Status, a.AutoAssigned, a.ConflictsResolved,
				a.RequirementRelaxed, a.Notes, a.Swapped, a.OriginalEmployeeID,
				a.CreatedAt, a.UpdatedAt,
			); err != nil {
				return fmt.Errorf("写入分配失败: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		if apperrors.Is(err, apperrors.CodeConcurrentModification) {
			return err
		}
		return apperrors.PersistenceFailure(err)
	}

	schedule.Version = expectedVersion + 1
	return nil
}

// scanSchedule 扫描排班表数据
func scanSchedule(row Scanner) (*model.Schedule, error) {
	schedule := &model.Schedule{}
	var statsJSON []byte

	err := row.Scan(
		&schedule.ID, &schedule.Name, &schedule.StartDate, &schedule.EndDate,
		&schedule.Status, &schedule.Version, &schedule.ParentScheduleID,
		&schedule.ApprovedBy, &schedule.ApprovedAt, &schedule.PublishedAt, &statsJSON,
		&schedule.CreatedAt, &schedule.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描排班表数据失败: %w", err)
	}

	if len(statsJSON) > 0 {
		json.Unmarshal(statsJSON, &schedule.Stats)
	}

	return schedule, nil
}

// scanAssignment 扫描分配数据
func scanAssignment(row Scanner) (*model.Assignment, error) {
	a := &model.Assignment{}

	err := row.Scan(
		&a.ID, &a.ScheduleID, &a.ShiftID, &a.EmployeeID, &a.Date,
		&a.StartTime, &a.EndTime, &a.Status, &a.AutoAssigned, &a.ConflictsResolved,
		&a.RequirementRelaxed, &a.Notes, &a.Swapped, &a.OriginalEmployeeID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描分配数据失败: %w", err)
	}

	return a, nil
}
