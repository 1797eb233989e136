package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
)

const shiftColumns = `id, name, type, date, start_time, end_time, location,
	required_staff, requirements, priority, unsocial, created_at, updated_at`

// ShiftRepository 班次仓储
type ShiftRepository struct {
	db DB
}

// NewShiftRepository 创建班次仓储
func NewShiftRepository(db DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// Create 创建班次
func (r *ShiftRepository) Create(ctx context.Context, shift *model.Shift) error {
	if err := shift.Validate(); err != nil {
		return err
	}
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	now := time.Now()
	shift.CreatedAt = now
	shift.UpdatedAt = now

	reqJSON, _ := json.Marshal(shift.Requirements)

	query := `
		INSERT INTO shifts (
			id, name, type, date, start_time, end_time, location,
			required_staff, requirements, priority, unsocial, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		shift.ID, shift.Name, shift.Type, shift.Date, shift.StartTime, shift.EndTime,
		shift.Location, shift.RequiredStaff, reqJSON, shift.Priority, shift.Unsocial,
		shift.CreatedAt, shift.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建班次失败: %w", err)
	}

	return nil
}

// CreateBatch 批量创建班次
func (r *ShiftRepository) CreateBatch(ctx context.Context, shifts []*model.Shift) error {
	for _, shift := range shifts {
		if err := r.Create(ctx, shift); err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据ID获取班次
func (r *ShiftRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	query := fmt.Sprintf(`SELECT %s FROM shifts WHERE id = $1 AND deleted_at IS NULL`, shiftColumns)
	return scanShift(r.db.QueryRowContext(ctx, query, id))
}

// Update 更新班次
func (r *ShiftRepository) Update(ctx context.Context, shift *model.Shift) error {
	if err := shift.Validate(); err != nil {
		return err
	}
	shift.UpdatedAt = time.Now()

	reqJSON, _ := json.Marshal(shift.Requirements)

	query := `
		UPDATE shifts SET
			name = $2, type = $3, date = $4, start_time = $5, end_time = $6,
			location = $7, required_staff = $8, requirements = $9,
			priority = $10, unsocial = $11, updated_at = $12
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		shift.ID, shift.Name, shift.Type, shift.Date, shift.StartTime, shift.EndTime,
		shift.Location, shift.RequiredStaff, reqJSON, shift.Priority, shift.Unsocial,
		shift.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新班次失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("班次不存在")
	}

	return nil
}

// Delete 软删除班次
func (r *ShiftRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE shifts SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除班次失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("班次不存在")
	}

	return nil
}

// List 查询班次列表
func (r *ShiftRepository) List(ctx context.Context, filter ListFilter) ([]*model.Shift, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", argIndex))
		args = append(args, filter.StartDate)
		argIndex++
	}

	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", argIndex))
		args = append(args, filter.EndDate)
		argIndex++
	}

	if shiftType, ok := filter.Extra["type"].(string); ok && shiftType != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, shiftType)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM shifts WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "date, start_time"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "asc"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM shifts
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, shiftColumns, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var shifts []*model.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, 0, err
		}
		shifts = append(shifts, shift)
	}

	return shifts, total, nil
}

// ListByDateRange 获取日期范围内的全部班次，按日期和开始时间排序
func (r *ShiftRepository) ListByDateRange(ctx context.Context, startDate, endDate string) ([]*model.Shift, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM shifts
		WHERE date >= $1 AND date <= $2 AND deleted_at IS NULL
		ORDER BY date, start_time
	`, shiftColumns)

	rows, err := r.db.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("查询班次失败: %w", err)
	}
	defer rows.Close()

	var shifts []*model.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	return shifts, nil
}

// scanShift 扫描班次数据
func scanShift(row Scanner) (*model.Shift, error) {
	shift := &model.Shift{}
	var reqJSON []byte

	err := row.Scan(
		&shift.ID, &shift.Name, &shift.Type, &shift.Date, &shift.StartTime, &shift.EndTime,
		&shift.Location, &shift.RequiredStaff, &reqJSON, &shift.Priority, &shift.Unsocial,
		&shift.CreatedAt, &shift.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描班次数据失败: %w", err)
	}

	json.Unmarshal(reqJSON, &shift.Requirements)

	return shift, nil
}
