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

// BlockRepository 班次块仓储
type BlockRepository struct {
	db DB
}

var _ Repository[model.Block] = (*BlockRepository)(nil)

// NewBlockRepository 创建班次块仓储
func NewBlockRepository(db DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// Create 创建班次块
func (r *BlockRepository) Create(ctx context.Context, b *model.Block) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = "open"
	}

	query := `
		INSERT INTO blocks (
			id, org_id, tractor_id, contract_type, service_date, start_time, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.OrgID, b.TractorID, b.ContractType, b.ServiceDate, b.StartTime, b.Status,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建班次块失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取班次块
func (r *BlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Block, error) {
	query := `
		SELECT id, org_id, tractor_id, contract_type, service_date, start_time, status,
			created_at, updated_at
		FROM blocks
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanBlock(r.db.QueryRowContext(ctx, query, id))
}

// Update 更新班次块
func (r *BlockRepository) Update(ctx context.Context, b *model.Block) error {
	b.UpdatedAt = time.Now()

	query := `
		UPDATE blocks SET
			tractor_id = $2, contract_type = $3, service_date = $4,
			start_time = $5, status = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		b.ID, b.TractorID, b.ContractType, b.ServiceDate, b.StartTime, b.Status, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新班次块失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("班次块不存在")
	}

	return nil
}

// Delete 软删除班次块
func (r *BlockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE blocks SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除班次块失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("班次块不存在")
	}

	return nil
}

// List 查询班次块列表
func (r *BlockRepository) List(ctx context.Context, filter ListFilter) ([]*model.Block, int, error) {
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

	if filter.TractorID != "" {
		conditions = append(conditions, fmt.Sprintf("tractor_id = $%d", argIndex))
		args = append(args, filter.TractorID)
		argIndex++
	}

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("service_date >= $%d", argIndex))
		args = append(args, filter.StartDate)
		argIndex++
	}

	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("service_date <= $%d", argIndex))
		args = append(args, filter.EndDate)
		argIndex++
	}

	where := strings.Join(conditions, " AND ")

	countQuery := "SELECT COUNT(*) FROM blocks WHERE " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计班次块数量失败: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT id, org_id, tractor_id, contract_type, service_date, start_time, status,
			created_at, updated_at
		FROM blocks
		WHERE %s
		ORDER BY service_date, start_time, tractor_id
		LIMIT $%d OFFSET $%d
	`, where, argIndex, argIndex+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询班次块列表失败: %w", err)
	}
	defer rows.Close()

	var blocks []*model.Block
	for rows.Next() {
		b, err := r.scanBlock(rows)
		if err != nil {
			return nil, 0, err
		}
		blocks = append(blocks, b)
	}

	return blocks, total, rows.Err()
}

// ListOpenForWeek 查询指定周内待分配的班次块
func (r *BlockRepository) ListOpenForWeek(ctx context.Context, orgID uuid.UUID, weekStart, weekEnd string) ([]*model.Block, error) {
	query := `
		SELECT id, org_id, tractor_id, contract_type, service_date, start_time, status,
			created_at, updated_at
		FROM blocks
		WHERE org_id = $1 AND status = 'open'
			AND service_date >= $2 AND service_date <= $3
			AND deleted_at IS NULL
		ORDER BY service_date, start_time, tractor_id
	`

	rows, err := r.db.QueryContext(ctx, query, orgID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("查询待分配班次块失败: %w", err)
	}
	defer rows.Close()

	var blocks []*model.Block
	for rows.Next() {
		b, err := r.scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}

	return blocks, rows.Err()
}

// scanBlock 扫描班次块行
func (r *BlockRepository) scanBlock(s Scanner) (*model.Block, error) {
	var b model.Block
	err := s.Scan(
		&b.ID, &b.OrgID, &b.TractorID, &b.ContractType, &b.ServiceDate, &b.StartTime, &b.Status,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("班次块不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("扫描班次块数据失败: %w", err)
	}
	return &b, nil
}
