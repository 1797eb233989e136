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

const ruleColumns = `id, type, employee_id, priority, active, params, created_at, updated_at`

// RuleRepository 规则仓储
type RuleRepository struct {
	db DB
}

// NewRuleRepository 创建规则仓储
func NewRuleRepository(db DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Create 创建规则，参数按类型校验后入库
func (r *RuleRepository) Create(ctx context.Context, rule *model.Rule) error {
	if rule.Params == nil {
		return fmt.Errorf("规则参数不能为空")
	}
	if err := rule.Params.Validate(); err != nil {
		return err
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	paramsJSON, err := json.Marshal(rule.Params)
	if err != nil {
		return fmt.Errorf("规则参数序列化失败: %w", err)
	}

	query := `
		INSERT INTO rules (
			id, type, employee_id, priority, active, params, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Type, rule.EmployeeID, rule.Priority, rule.Active,
		paramsJSON, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建规则失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取规则
func (r *RuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM rules WHERE id = $1 AND deleted_at IS NULL`, ruleColumns)
	return scanRule(r.db.QueryRowContext(ctx, query, id))
}

// Update 更新规则
func (r *RuleRepository) Update(ctx context.Context, rule *model.Rule) error {
	if rule.Params == nil {
		return fmt.Errorf("规则参数不能为空")
	}
	if err := rule.Params.Validate(); err != nil {
		return err
	}
	rule.UpdatedAt = time.Now()

	paramsJSON, err := json.Marshal(rule.Params)
	if err != nil {
		return fmt.Errorf("规则参数序列化失败: %w", err)
	}

	query := `
		UPDATE rules SET
			type = $2, employee_id = $3, priority = $4, active = $5,
			params = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Type, rule.EmployeeID, rule.Priority, rule.Active,
		paramsJSON, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新规则失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("规则不存在")
	}

	return nil
}

// Delete 软删除规则
func (r *RuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE rules SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除规则失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("规则不存在")
	}

	return nil
}

// List 查询规则列表
func (r *RuleRepository) List(ctx context.Context, filter ListFilter) ([]*model.Rule, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if ruleType, ok := filter.Extra["type"].(string); ok && ruleType != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, ruleType)
		argIndex++
	}

	if empID, ok := filter.Extra["employee_id"].(uuid.UUID); ok {
		conditions = append(conditions, fmt.Sprintf("(employee_id = $%d OR employee_id IS NULL)", argIndex))
		args = append(args, empID)
		argIndex++
	}

	if active, ok := filter.Extra["active"].(bool); ok {
		conditions = append(conditions, fmt.Sprintf("active = $%d", argIndex))
		args = append(args, active)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM rules WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "priority"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "desc"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM rules
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, ruleColumns, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var rules []*model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, 0, err
		}
		rules = append(rules, rule)
	}

	return rules, total, nil
}

// ListActive 获取全部启用规则
func (r *RuleRepository) ListActive(ctx context.Context) ([]*model.Rule, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM rules
		WHERE active = true AND deleted_at IS NULL
		ORDER BY priority DESC
	`, ruleColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询规则失败: %w", err)
	}
	defer rows.Close()

	var rules []*model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

// scanRule 扫描规则数据，按类型实例化参数
func scanRule(row Scanner) (*model.Rule, error) {
	rule := &model.Rule{}
	var paramsJSON []byte

	err := row.Scan(
		&rule.ID, &rule.Type, &rule.EmployeeID, &rule.Priority, &rule.Active,
		&paramsJSON, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描规则数据失败: %w", err)
	}

	params, err := model.ParseRuleParams(rule.Type, paramsJSON)
	if err != nil {
		return nil, fmt.Errorf("规则 %s 参数无效: %w", rule.ID, err)
	}
	rule.Params = params

	return rule, nil
}
