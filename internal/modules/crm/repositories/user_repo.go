package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nimbuscrm/crm-backend/internal/modules/crm/models"
)

// UserRepo implements workflow.UserStore
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// TeamMemberIDs returns the user ids belonging to a team, tenant scoped
func (r *UserRepo) TeamMemberIDs(ctx context.Context, tenantID uuid.UUID, teamID uuid.UUID) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.TeamMember{}).
		Where("tenant_id = ? AND team_id = ?", tenantID, teamID).
		Order("user_id").
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}
