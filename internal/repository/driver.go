// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/pkg/model"
)

// DriverRepository 司机仓储
type DriverRepository struct {
	db DB
}

var _ Repository[model.Driver] = (*DriverRepository)(nil)

// NewDriverRepository 创建司机仓储
func NewDriverRepository(db DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// Create 创建司机
func (r *DriverRepository) Create(ctx context.Context, d *model.Driver) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	query := `
		INSERT INTO drivers (
			id, org_id, name, code, contract_type, status, load_eligible, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.OrgID, d.Name, d.Code, d.ContractType, d.Status, d.LoadEligible, d.Notes,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建司机失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取司机
func (r *DriverRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Driver, error) {
	query := `
		SELECT id, org_id, name, code, contract_type, status, load_eligible, notes,
			created_at, updated_at
		FROM drivers
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanDriver(r.db.QueryRowContext(ctx, query, id))
}

// GetByCode 根据组织和工号获取司机
func (r *DriverRepository) GetByCode(ctx context.Context, orgID uuid.UUID, code string) (*model.Driver, error) {
	query := `
		SELECT id, org_id, name, code, contract_type, status, load_eligible, notes,
			created_at, updated_at
		FROM drivers
		WHERE org_id = $1 AND code = $2 AND deleted_at IS NULL
	`

	return r.scanDriver(r.db.QueryRowContext(ctx, query, orgID, code))
}

// Update 更新司机
func (r *DriverRepository) Update(ctx context.Context, d *model.Driver) error {
	d.UpdatedAt = time.Now()

	query := `
		UPDATE drivers SET
			name = $2, code = $3, contract_type = $4, status = $5,
			load_eligible = $6, notes = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		d.ID, d.Name, d.Code, d.ContractType, d.Status, d.LoadEligible, d.Notes, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新司机失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("司机不存在")
	}

	return nil
}

// Delete 软删除司机
func (r *DriverRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE drivers SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除司机失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("司机不存在")
	}

	return nil
}

// List 查询司机列表
func (r *DriverRepository) List(ctx context.Context, filter ListFilter) ([]*model.Driver, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.OrgID != nil {
		conditions = append(conditions, fmt.Sprintf("org_id = $%d", argIndex))
		args = append(args, *filter.OrgID)
		argIndex++
	}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.ContractType != "" {
		conditions = append(conditions, fmt.Sprintf("contract_type = $%d", argIndex))
		args = append(args, filter.ContractType)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	where := strings.Join(conditions, " AND ")

	// 统计总数
	countQuery := "SELECT COUNT(*) FROM drivers WHERE " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计司机数量失败: %w", err)
	}

	orderBy := "created_at"
	if filter.OrderBy != "" {
		orderBy = filter.OrderBy
	}
	orderDir := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		orderDir = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT id, org_id, name, code, contract_type, status, load_eligible, notes,
			created_at, updated_at
		FROM drivers
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, orderBy, orderDir, argIndex, argIndex+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询司机列表失败: %w", err)
	}
	defer rows.Close()

	var drivers []*model.Driver
	for rows.Next() {
		d, err := r.scanDriver(rows)
		if err != nil {
			return nil, 0, err
		}
		drivers = append(drivers, d)
	}

	return drivers, total, rows.Err()
}

// ListEligible 查询可参与排班的司机
func (r *DriverRepository) ListEligible(ctx context.Context, orgID uuid.UUID) ([]*model.Driver, error) {
	query := `
		SELECT id, org_id, name, code, contract_type, status, load_eligible, notes,
			created_at, updated_at
		FROM drivers
		WHERE org_id = $1 AND status = 'active' AND load_eligible = TRUE AND deleted_at IS NULL
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("查询可用司机失败: %w", err)
	}
	defer rows.Close()

	var drivers []*model.Driver
	for rows.Next() {
		d, err := r.scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}

	return drivers, rows.Err()
}

// scanDriver 扫描司机行
func (r *DriverRepository) scanDriver(s Scanner) (*model.Driver, error) {
	var d model.Driver
	err := s.Scan(
		&d.ID, &d.OrgID, &d.Name, &d.Code, &d.ContractType, &d.Status, &d.LoadEligible, &d.Notes,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("司机不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("扫描司机数据失败: %w", err)
	}
	return &d, nil
}
