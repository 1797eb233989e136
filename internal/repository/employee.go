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

const employeeColumns = `id, name, code, department, status,
	qualifications, skills, experience_months, max_hours_per_week,
	weekly_availability, preferences, created_at, updated_at`

// EmployeeRepository 员工仓储
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create 创建员工
func (r *EmployeeRepository) Create(ctx context.Context, emp *model.Employee) error {
	if emp.ID == uuid.Nil {
		emp.ID = uuid.New()
	}
	now := time.Now()
	emp.CreatedAt = now
	emp.UpdatedAt = now

	qualsJSON, _ := json.Marshal(emp.Qualifications)
	skillsJSON, _ := json.Marshal(emp.Skills)
	availJSON, _ := json.Marshal(emp.WeeklyAvailability)
	prefsJSON, _ := json.Marshal(emp.Preferences)

	query := `
		INSERT INTO employees (
			id, name, code, department, status,
			qualifications, skills, experience_months, max_hours_per_week,
			weekly_availability, preferences, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Code, emp.Department, emp.Status,
		qualsJSON, skillsJSON, emp.ExperienceMonths, emp.MaxHoursPerWeek,
		availJSON, prefsJSON, emp.CreatedAt, emp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建员工失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取员工
func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE id = $1 AND deleted_at IS NULL`, employeeColumns)
	return scanEmployee(r.db.QueryRowContext(ctx, query, id))
}

// GetByCode 根据工号获取员工
func (r *EmployeeRepository) GetByCode(ctx context.Context, code string) (*model.Employee, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE code = $1 AND deleted_at IS NULL`, employeeColumns)
	return scanEmployee(r.db.QueryRowContext(ctx, query, code))
}

// Update 更新员工
func (r *EmployeeRepository) Update(ctx context.Context, emp *model.Employee) error {
	emp.UpdatedAt = time.Now()

	qualsJSON, _ := json.Marshal(emp.Qualifications)
	skillsJSON, _ := json.Marshal(emp.Skills)
	availJSON, _ := json.Marshal(emp.WeeklyAvailability)
	prefsJSON, _ := json.Marshal(emp.Preferences)

	query := `
		UPDATE employees SET
			name = $2, code = $3, department = $4, status = $5,
			qualifications = $6, skills = $7, experience_months = $8,
			max_hours_per_week = $9, weekly_availability = $10,
			preferences = $11, updated_at = $12
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Code, emp.Department, emp.Status,
		qualsJSON, skillsJSON, emp.ExperienceMonths,
		emp.MaxHoursPerWeek, availJSON, prefsJSON, emp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新员工失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("员工不存在")
	}

	return nil
}

// Delete 软删除员工
func (r *EmployeeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE employees SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除员工失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("员工不存在")
	}

	return nil
}

// List 查询员工列表
func (r *EmployeeRepository) List(ctx context.Context, filter ListFilter) ([]*model.Employee, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	if dept, ok := filter.Extra["department"].(string); ok && dept != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", argIndex))
		args = append(args, dept)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM employees WHERE %s", whereClause)
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
		SELECT %s FROM employees
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, employeeColumns, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, emp)
	}

	return employees, total, nil
}

// ListByIDs 根据ID列表获取员工
func (r *EmployeeRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT %s FROM employees
		WHERE id IN (%s) AND deleted_at IS NULL
	`, employeeColumns, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询员工失败: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}

	return employees, nil
}

// ListActive 获取所有在职员工
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]*model.Employee, error) {
	filter := DefaultListFilter().WithStatus("active").WithLimit(10000)
	employees, _, err := r.List(ctx, filter)
	return employees, err
}

// scanEmployee 从单行扫描员工数据
func scanEmployee(row Scanner) (*model.Employee, error) {
	emp := &model.Employee{}
	var qualsJSON, skillsJSON, availJSON, prefsJSON []byte

	err := row.Scan(
		&emp.ID, &emp.Name, &emp.Code, &emp.Department, &emp.Status,
		&qualsJSON, &skillsJSON, &emp.ExperienceMonths, &emp.MaxHoursPerWeek,
		&availJSON, &prefsJSON, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描员工数据失败: %w", err)
	}

	json.Unmarshal(qualsJSON, &emp.Qualifications)
	json.Unmarshal(skillsJSON, &emp.Skills)
	json.Unmarshal(availJSON, &emp.WeeklyAvailability)
	json.Unmarshal(prefsJSON, &emp.Preferences)

	return emp, nil
}
