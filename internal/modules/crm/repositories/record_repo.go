package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
)

var entityTables = map[workflow.EntityType]string{
	workflow.EntityLead:    "crm_leads",
	workflow.EntityContact: "crm_contacts",
	workflow.EntityDeal:    "crm_deals",
	workflow.EntityAccount: "crm_accounts",
}

// RecordRepo implements workflow.RecordStore over the per-entity CRM record
// tables. Field names come from tenant-authored workflow configs, so every
// dynamic identifier is quoted before it reaches SQL.
type RecordRepo struct {
	db *gorm.DB
}

// NewRecordRepo creates a new record repository
func NewRecordRepo(db *gorm.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

func tableFor(entityType workflow.EntityType) (string, error) {
	table, ok := entityTables[entityType]
	if !ok {
		return "", fmt.Errorf("unknown entity type: %s", entityType)
	}
	return table, nil
}

// Get reads the full record as a field map, tenant scoped
func (r *RecordRepo) Get(ctx context.Context, tenantID uuid.UUID, entityType workflow.EntityType, id uuid.UUID) (map[string]interface{}, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}

	record := map[string]interface{}{}
	err = r.db.WithContext(ctx).
		Table(table).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", entityType, id, err)
	}
	return record, nil
}

// UpdateField writes a single field on one record
func (r *RecordRepo) UpdateField(ctx context.Context, tenantID uuid.UUID, entityType workflow.EntityType, id uuid.UUID, field string, value interface{}) error {
	table, err := tableFor(entityType)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(
		"UPDATE %s SET %s = ?, updated_at = ? WHERE tenant_id = ? AND id = ?",
		pq.QuoteIdentifier(table), pq.QuoteIdentifier(field),
	)
	result := r.db.WithContext(ctx).Exec(stmt, value, time.Now(), tenantID, id)
	if result.Error != nil {
		return fmt.Errorf("failed to update %s.%s: %w", table, field, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %s not found", entityType, id)
	}
	return nil
}

// Insert creates a new record from a field map and returns its id
func (r *RecordRepo) Insert(ctx context.Context, tenantID uuid.UUID, entityType workflow.EntityType, fields map[string]interface{}) (uuid.UUID, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return uuid.Nil, err
	}

	row := make(map[string]interface{}, len(fields)+4)
	for field, value := range fields {
		row[field] = value
	}
	now := time.Now()
	row["id"] = uuid.New()
	row["tenant_id"] = tenantID
	row["created_at"] = now
	row["updated_at"] = now

	if err := r.db.WithContext(ctx).Table(table).Create(&row).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return row["id"].(uuid.UUID), nil
}
