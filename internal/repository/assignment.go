// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/pkg/model"
)

// AssignmentRepository 历史分配记录仓储
// 记录是不可变事实：只追加或软退役，从不原地修改
type AssignmentRepository struct {
	db DB
}

// NewAssignmentRepository 创建历史分配记录仓储
func NewAssignmentRepository(db DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create 追加一条分配记录
func (r *AssignmentRepository) Create(ctx context.Context, rec *model.AssignmentRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.AssignedAt.IsZero() {
		rec.AssignedAt = now
	}

	query := `
		INSERT INTO assignment_records (
			id, org_id, driver_id, driver_name, block_id, tractor_id, contract_type,
			service_date, start_time, assigned_at, retired_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.OrgID, rec.DriverID, rec.DriverName, rec.BlockID, rec.TractorID, rec.ContractType,
		rec.ServiceDate, rec.StartTime, rec.AssignedAt, rec.RetiredAt, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建分配记录失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取分配记录
func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AssignmentRecord, error) {
	query := `
		SELECT id, org_id, driver_id, driver_name, block_id, tractor_id, contract_type,
			service_date, start_time, assigned_at, retired_at, created_at, updated_at
		FROM assignment_records
		WHERE id = $1
	`

	return r.scanRecord(r.db.QueryRowContext(ctx, query, id))
}

// Retire 软退役一条分配记录
// 退役后的记录不再参与模式计算，但保留为审计事实
func (r *AssignmentRepository) Retire(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE assignment_records SET retired_at = $2, updated_at = $2
		WHERE id = $1 AND retired_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("退役分配记录失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("分配记录不存在或已退役")
	}

	return nil
}

// ListSince 查询指定日期之后的有效分配记录（模式计算输入）
func (r *AssignmentRepository) ListSince(ctx context.Context, orgID uuid.UUID, sinceDate string) ([]*model.AssignmentRecord, error) {
	query := `
		SELECT id, org_id, driver_id, driver_name, block_id, tractor_id, contract_type,
			service_date, start_time, assigned_at, retired_at, created_at, updated_at
		FROM assignment_records
		WHERE org_id = $1 AND service_date >= $2 AND retired_at IS NULL
		ORDER BY service_date, assigned_at
	`

	return r.queryRecords(ctx, query, orgID, sinceDate)
}

// ListForWeek 查询指定周内的有效分配记录（预置周状态）
func (r *AssignmentRepository) ListForWeek(ctx context.Context, orgID uuid.UUID, weekStart, weekEnd string) ([]*model.AssignmentRecord, error) {
	query := `
		SELECT id, org_id, driver_id, driver_name, block_id, tractor_id, contract_type,
			service_date, start_time, assigned_at, retired_at, created_at, updated_at
		FROM assignment_records
		WHERE org_id = $1 AND service_date >= $2 AND service_date <= $3 AND retired_at IS NULL
		ORDER BY service_date, assigned_at
	`

	return r.queryRecords(ctx, query, orgID, weekStart, weekEnd)
}

// ListByDriver 查询某司机的有效分配记录
func (r *AssignmentRepository) ListByDriver(ctx context.Context, driverID uuid.UUID, sinceDate string) ([]*model.AssignmentRecord, error) {
	query := `
		SELECT id, org_id, driver_id, driver_name, block_id, tractor_id, contract_type,
			service_date, start_time, assigned_at, retired_at, created_at, updated_at
		FROM assignment_records
		WHERE driver_id = $1 AND service_date >= $2 AND retired_at IS NULL
		ORDER BY service_date
	`

	return r.queryRecords(ctx, query, driverID, sinceDate)
}

// queryRecords 执行记录查询
func (r *AssignmentRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*model.AssignmentRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询分配记录失败: %w", err)
	}
	defer rows.Close()

	var records []*model.AssignmentRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// scanRecord 扫描分配记录行
func (r *AssignmentRepository) scanRecord(s Scanner) (*model.AssignmentRecord, error) {
	var rec model.AssignmentRecord
	err := s.Scan(
		&rec.ID, &rec.OrgID, &rec.DriverID, &rec.DriverName, &rec.BlockID, &rec.TractorID, &rec.ContractType,
		&rec.ServiceDate, &rec.StartTime, &rec.AssignedAt, &rec.RetiredAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("分配记录不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("扫描分配记录失败: %w", err)
	}
	return &rec, nil
}
