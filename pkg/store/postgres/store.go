package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alignhq/align/pkg/config"
	"github.com/alignhq/align/pkg/model"
)

type Store struct {
	db *gorm.DB
}

func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	return &Store{db: db}, nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&model.Organization{},
		&model.Workspace{},
		&model.Team{},
		&model.Cycle{},
		&model.User{},
		&model.RoleAssignment{},
		&model.AccessGrant{},
		&model.Objective{},
		&model.KeyResult{},
		&model.ObjectiveKeyResult{},
		&model.Initiative{},
		&model.AuditLog{},
	)
}

type ObjectiveRepository struct {
	db *gorm.DB
}

func NewObjectiveRepository(db *gorm.DB) *ObjectiveRepository {
	return &ObjectiveRepository{db: db}
}

func (r *ObjectiveRepository) Create(ctx context.Context, objective *model.Objective) error {
	return r.db.WithContext(ctx).Create(objective).Error
}

// GetByID loads an objective within a tenant. Passing a nil tenant scopes
// nothing and is reserved for superuser reads.
func (r *ObjectiveRepository) GetByID(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*model.Objective, error) {
	query := r.db.WithContext(ctx).Preload("Cycle").Preload("KeyResults.KeyResult")
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	var objective model.Objective
	if err := query.First(&objective, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &objective, nil
}

func (r *ObjectiveRepository) List(ctx context.Context, tenantID uuid.UUID, cycleID *uuid.UUID, limit, offset int) ([]model.Objective, int64, error) {
	var objectives []model.Objective
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Objective{}).Where("tenant_id = ?", tenantID)
	if cycleID != nil {
		query = query.Where("cycle_id = ?", *cycleID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Cycle").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&objectives).Error

	return objectives, total, err
}

func (r *ObjectiveRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&model.Objective{}).Where("id = ?", id).Updates(updates).Error
}

// SetPublished flips the publish flag. Callers run it inside the same
// transaction as the audit append so the transition is atomic.
func (r *ObjectiveRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	return r.db.WithContext(ctx).Model(&model.Objective{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_published": published, "updated_at": time.Now().UTC()}).Error
}

func (r *ObjectiveRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Objective{}, "id = ?", id).Error
}

type KeyResultRepository struct {
	db *gorm.DB
}

func NewKeyResultRepository(db *gorm.DB) *KeyResultRepository {
	return &KeyResultRepository{db: db}
}

func (r *KeyResultRepository) Create(ctx context.Context, kr *model.KeyResult) error {
	return r.db.WithContext(ctx).Create(kr).Error
}

func (r *KeyResultRepository) GetByID(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*model.KeyResult, error) {
	query := r.db.WithContext(ctx).Preload("Cycle")
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	var kr model.KeyResult
	if err := query.First(&kr, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &kr, nil
}

func (r *KeyResultRepository) List(ctx context.Context, tenantID uuid.UUID, cycleID *uuid.UUID, limit, offset int) ([]model.KeyResult, int64, error) {
	var krs []model.KeyResult
	var total int64

	query := r.db.WithContext(ctx).Model(&model.KeyResult{}).Where("tenant_id = ?", tenantID)
	if cycleID != nil {
		query = query.Where("cycle_id = ?", *cycleID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Cycle").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&krs).Error

	return krs, total, err
}

func (r *KeyResultRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&model.KeyResult{}).Where("id = ?", id).Updates(updates).Error
}

func (r *KeyResultRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	return r.db.WithContext(ctx).Model(&model.KeyResult{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_published": published, "updated_at": time.Now().UTC()}).Error
}

// InitiativeCount reports how many initiatives reference the key result.
// A non-zero count blocks deletion.
func (r *KeyResultRepository) InitiativeCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Initiative{}).Where("key_result_id = ?", id).Count(&count).Error
	return count, err
}

func (r *KeyResultRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.KeyResult{}, "id = ?", id).Error
}

// Link attaches a key result to an objective with a roll-up weight, or
// updates the weight when the link exists.
func (r *KeyResultRepository) Link(ctx context.Context, objectiveID, keyResultID uuid.UUID, weight float64) error {
	var existing model.ObjectiveKeyResult
	err := r.db.WithContext(ctx).
		Where("objective_id = ? AND key_result_id = ?", objectiveID, keyResultID).
		First(&existing).Error
	if err == nil {
		return r.db.WithContext(ctx).Model(&existing).Update("weight", weight).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	link := model.ObjectiveKeyResult{ObjectiveID: objectiveID, KeyResultID: keyResultID, Weight: weight}
	return r.db.WithContext(ctx).Create(&link).Error
}

// LinksForObjective loads links with their key results for progress roll-up.
func (r *KeyResultRepository) LinksForObjective(ctx context.Context, objectiveID uuid.UUID) ([]model.ObjectiveKeyResult, error) {
	var links []model.ObjectiveKeyResult
	err := r.db.WithContext(ctx).
		Preload("KeyResult").
		Where("objective_id = ?", objectiveID).
		Find(&links).Error
	return links, err
}

// ObjectivesForKeyResult lists objective IDs linked to a key result.
func (r *KeyResultRepository) ObjectivesForKeyResult(ctx context.Context, keyResultID uuid.UUID) ([]uuid.UUID, error) {
	var links []model.ObjectiveKeyResult
	if err := r.db.WithContext(ctx).Where("key_result_id = ?", keyResultID).Find(&links).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.ObjectiveID)
	}
	return ids, nil
}

type CycleRepository struct {
	db *gorm.DB
}

func NewCycleRepository(db *gorm.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

func (r *CycleRepository) Create(ctx context.Context, cycle *model.Cycle) error {
	return r.db.WithContext(ctx).Create(cycle).Error
}

func (r *CycleRepository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (*model.Cycle, error) {
	var cycle model.Cycle
	err := r.db.WithContext(ctx).First(&cycle, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (r *CycleRepository) List(ctx context.Context, tenantID uuid.UUID) ([]model.Cycle, error) {
	var cycles []model.Cycle
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("starts_at DESC").
		Find(&cycles).Error
	return cycles, err
}

func (r *CycleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.CycleStatus) error {
	return r.db.WithContext(ctx).Model(&model.Cycle{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()}).Error
}

type InitiativeRepository struct {
	db *gorm.DB
}

func NewInitiativeRepository(db *gorm.DB) *InitiativeRepository {
	return &InitiativeRepository{db: db}
}

func (r *InitiativeRepository) Create(ctx context.Context, initiative *model.Initiative) error {
	return r.db.WithContext(ctx).Create(initiative).Error
}

func (r *InitiativeRepository) GetByID(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*model.Initiative, error) {
	query := r.db.WithContext(ctx)
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	var initiative model.Initiative
	if err := query.First(&initiative, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &initiative, nil
}

func (r *InitiativeRepository) ListForKeyResult(ctx context.Context, keyResultID uuid.UUID) ([]model.Initiative, error) {
	var initiatives []model.Initiative
	err := r.db.WithContext(ctx).
		Where("key_result_id = ?", keyResultID).
		Order("created_at ASC").
		Find(&initiatives).Error
	return initiatives, err
}

func (r *InitiativeRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&model.Initiative{}).Where("id = ?", id).Updates(updates).Error
}

func (r *InitiativeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Initiative{}, "id = ?", id).Error
}

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) UpdateWhitelist(ctx context.Context, id uuid.UUID, whitelist []string) error {
	return r.db.WithContext(ctx).Model(&model.Organization{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"exec_only_whitelist": pq.StringArray(whitelist), "updated_at": time.Now().UTC()}).Error
}
