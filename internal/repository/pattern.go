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

// PatternRepository 时段模式仓储
// 模式表是派生数据，每次重算整表删除重建；
// 删除与写入在同一事务内完成，读方看不到半旧半新的表
type PatternRepository struct {
	db DB
}

// NewPatternRepository 创建时段模式仓储
func NewPatternRepository(db DB) *PatternRepository {
	return &PatternRepository{db: db}
}

// ReplaceAll 在单个事务内整表替换模式数据
func (r *PatternRepository) ReplaceAll(ctx context.Context, runner TxRunner, orgID uuid.UUID, rows []*model.SlotPattern) error {
	return runner.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM slot_patterns WHERE org_id = $1`, orgID); err != nil {
			return fmt.Errorf("清空模式表失败: %w", err)
		}

		now := time.Now()
		query := `
			INSERT INTO slot_patterns (
				org_id, signature, driver_id, driver_name,
				weighted_count, raw_count, recent_count, last_date, confidence, computed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		for _, row := range rows {
			_, err := tx.ExecContext(ctx, query,
				orgID, row.Signature, row.DriverID, row.DriverName,
				row.WeightedCount, row.RawCount, row.RecentCount, row.LastDate, row.Confidence, now,
			)
			if err != nil {
				return fmt.Errorf("写入模式行失败 (签名 %s): %w", row.Signature, err)
			}
		}
		return nil
	})
}

// GetBySignature 查询某签名的模式行（按份额降序）
func (r *PatternRepository) GetBySignature(ctx context.Context, orgID uuid.UUID, signature string) ([]*model.SlotPattern, error) {
	query := `
		SELECT signature, driver_id, driver_name,
			weighted_count, raw_count, recent_count, last_date, confidence
		FROM slot_patterns
		WHERE org_id = $1 AND signature = $2
		ORDER BY confidence DESC, recent_count DESC, driver_name
	`

	return r.queryPatterns(ctx, query, orgID, signature)
}

// ListAll 查询组织的全部模式行
func (r *PatternRepository) ListAll(ctx context.Context, orgID uuid.UUID) ([]*model.SlotPattern, error) {
	query := `
		SELECT signature, driver_id, driver_name,
			weighted_count, raw_count, recent_count, last_date, confidence
		FROM slot_patterns
		WHERE org_id = $1
		ORDER BY signature, confidence DESC
	`

	return r.queryPatterns(ctx, query, orgID)
}

// Count 返回组织的模式行数
func (r *PatternRepository) Count(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM slot_patterns WHERE org_id = $1`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("统计模式行数失败: %w", err)
	}
	return count, nil
}

// queryPatterns 执行模式行查询
func (r *PatternRepository) queryPatterns(ctx context.Context, query string, args ...interface{}) ([]*model.SlotPattern, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询模式行失败: %w", err)
	}
	defer rows.Close()

	var patterns []*model.SlotPattern
	for rows.Next() {
		var p model.SlotPattern
		err := rows.Scan(
			&p.Signature, &p.DriverID, &p.DriverName,
			&p.WeightedCount, &p.RawCount, &p.RecentCount, &p.LastDate, &p.Confidence,
		)
		if err != nil {
			return nil, fmt.Errorf("扫描模式行失败: %w", err)
		}
		patterns = append(patterns, &p)
	}

	return patterns, rows.Err()
}
