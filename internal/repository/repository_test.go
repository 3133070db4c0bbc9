package repository

import (
	"testing"

	"github.com/google/uuid"
)

func TestListFilter_Builders(t *testing.T) {
	orgID := uuid.New()

	filter := DefaultListFilter().
		WithOrgID(orgID).
		WithStatus("active").
		WithContractType("solo1").
		WithDateRange("2026-08-31", "2026-09-06").
		WithLimit(50).
		WithOffset(10)

	if filter.OrgID == nil || *filter.OrgID != orgID {
		t.Errorf("OrgID = %v, want %s", filter.OrgID, orgID)
	}
	if filter.Status != "active" {
		t.Errorf("Status = %s, want active", filter.Status)
	}
	if filter.ContractType != "solo1" {
		t.Errorf("ContractType = %s, want solo1", filter.ContractType)
	}
	if filter.StartDate != "2026-08-31" || filter.EndDate != "2026-09-06" {
		t.Errorf("date range = %s..%s", filter.StartDate, filter.EndDate)
	}
	if filter.Limit != 50 || filter.Offset != 10 {
		t.Errorf("limit/offset = %d/%d, want 50/10", filter.Limit, filter.Offset)
	}
	// 构造器不修改默认排序
	if filter.OrderBy != "created_at" || filter.OrderDir != "desc" {
		t.Errorf("order = %s %s, want created_at desc", filter.OrderBy, filter.OrderDir)
	}
}

func TestDefaultListFilter(t *testing.T) {
	filter := DefaultListFilter()
	if filter.Limit != 20 || filter.Offset != 0 {
		t.Errorf("limit/offset = %d/%d, want 20/0", filter.Limit, filter.Offset)
	}
	if filter.OrgID != nil {
		t.Error("OrgID should be nil by default")
	}
}
