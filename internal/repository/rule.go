// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/pkg/model"
)

// RuleRepository 保护规则仓储
type RuleRepository struct {
	db DB
}

// NewRuleRepository 创建保护规则仓储
func NewRuleRepository(db DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Create 创建保护规则
func (r *RuleRepository) Create(ctx context.Context, rule *model.ProtectedRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	daysJSON, _ := json.Marshal(rule.Days)
	contractsJSON, _ := json.Marshal(rule.ContractTypes)

	query := `
		INSERT INTO protected_rules (
			id, org_id, driver_id, driver_name, days, contract_types,
			start_after, start_before, effective_from, effective_to,
			is_protected, note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.OrgID, rule.DriverID, rule.DriverName, daysJSON, contractsJSON,
		rule.StartAfter, rule.StartBefore, rule.EffectiveFrom, rule.EffectiveTo,
		rule.IsProtected, rule.Note, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建保护规则失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取保护规则
func (r *RuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ProtectedRule, error) {
	query := `
		SELECT id, org_id, driver_id, driver_name, days, contract_types,
			start_after, start_before, effective_from, effective_to,
			is_protected, note, created_at, updated_at
		FROM protected_rules
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanRule(r.db.QueryRowContext(ctx, query, id))
}

// Update 更新保护规则
func (r *RuleRepository) Update(ctx context.Context, rule *model.ProtectedRule) error {
	rule.UpdatedAt = time.Now()

	daysJSON, _ := json.Marshal(rule.Days)
	contractsJSON, _ := json.Marshal(rule.ContractTypes)

	query := `
		UPDATE protected_rules SET
			driver_id = $2, driver_name = $3, days = $4, contract_types = $5,
			start_after = $6, start_before = $7, effective_from = $8, effective_to = $9,
			is_protected = $10, note = $11, updated_at = $12
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.DriverID, rule.DriverName, daysJSON, contractsJSON,
		rule.StartAfter, rule.StartBefore, rule.EffectiveFrom, rule.EffectiveTo,
		rule.IsProtected, rule.Note, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新保护规则失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("保护规则不存在")
	}

	return nil
}

// Delete 软删除保护规则
func (r *RuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE protected_rules SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除保护规则失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("保护规则不存在")
	}

	return nil
}

// ListEffective 查询有效期与指定日期范围重叠的保护规则
// 有效期过滤在 SQL 层做粗筛，精确的逐日判断仍由模型层完成；
// 范围查询保证周中途生效的规则也会被加载
func (r *RuleRepository) ListEffective(ctx context.Context, orgID uuid.UUID, from, to string) ([]*model.ProtectedRule, error) {
	query := `
		SELECT id, org_id, driver_id, driver_name, days, contract_types,
			start_after, start_before, effective_from, effective_to,
			is_protected, note, created_at, updated_at
		FROM protected_rules
		WHERE org_id = $1
			AND (effective_from = '' OR effective_from <= $3)
			AND (effective_to = '' OR effective_to >= $2)
			AND deleted_at IS NULL
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("查询保护规则失败: %w", err)
	}
	defer rows.Close()

	var rules []*model.ProtectedRule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// scanRule 扫描保护规则行
func (r *RuleRepository) scanRule(s Scanner) (*model.ProtectedRule, error) {
	var rule model.ProtectedRule
	var daysJSON, contractsJSON []byte

	err := s.Scan(
		&rule.ID, &rule.OrgID, &rule.DriverID, &rule.DriverName, &daysJSON, &contractsJSON,
		&rule.StartAfter, &rule.StartBefore, &rule.EffectiveFrom, &rule.EffectiveTo,
		&rule.IsProtected, &rule.Note, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("保护规则不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("扫描保护规则失败: %w", err)
	}

	if len(daysJSON) > 0 {
		json.Unmarshal(daysJSON, &rule.Days)
	}
	if len(contractsJSON) > 0 {
		json.Unmarshal(contractsJSON, &rule.ContractTypes)
	}

	return &rule, nil
}
