package store

import (
	"context"
	"strconv"
	"time"

	"cookbook/internal/auth"
	"cookbook/internal/metrics"
	"cookbook/models"

	"gorm.io/gorm"
)

// IngredientPatch carries the writable ingredient fields. A nil Name resets
// the name to DefaultIngredientName.
type IngredientPatch struct {
	Name *string `json:"name" validate:"omitempty,max=255"`
}

// IngredientStore persists rows of the ingredients table.
type IngredientStore struct {
	db *gorm.DB
	instrument
}

func NewIngredientStore(db *gorm.DB, rec *metrics.Recorder) *IngredientStore {
	return &IngredientStore{db: db, instrument: instrument{metrics: rec}}
}

func (s *IngredientStore) Create(ctx context.Context, utx auth.UserCtx, patch IngredientPatch) (result *models.Ingredient, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityIngredients, "create", started, err) }()

	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	ingredient := models.Ingredient{Name: stringOr(patch.Name, DefaultIngredientName)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ingredient).Error; err != nil {
			return err
		}
		return tx.First(&ingredient, ingredient.ID).Error
	})
	if err != nil {
		return nil, mapError("create ingredient", EntityIngredients, strconv.FormatInt(ingredient.ID, 10), err)
	}
	return &ingredient, nil
}

func (s *IngredientStore) Get(ctx context.Context, utx auth.UserCtx, id int64) (result *models.Ingredient, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityIngredients, "get", started, err) }()

	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		return nil, mapError("get ingredient", EntityIngredients, strconv.FormatInt(id, 10), err)
	}
	return &ingredient, nil
}

// Update overwrites every writable field; fields absent from patch are reset
// to their defaults.
func (s *IngredientStore) Update(ctx context.Context, utx auth.UserCtx, id int64, patch IngredientPatch) (result *models.Ingredient, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityIngredients, "update", started, err) }()

	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var ingredient models.Ingredient
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(lockForUpdate).First(&ingredient, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Ingredient{}).Where("id = ?", id).
			Update("name", stringOr(patch.Name, DefaultIngredientName)).Error; err != nil {
			return err
		}
		return tx.First(&ingredient, id).Error
	})
	if err != nil {
		return nil, mapError("update ingredient", EntityIngredients, strconv.FormatInt(id, 10), err)
	}
	return &ingredient, nil
}

// List returns every ingredient, newest id first.
func (s *IngredientStore) List(ctx context.Context, utx auth.UserCtx) (result []models.Ingredient, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityIngredients, "list", started, err) }()

	ingredients := make([]models.Ingredient, 0)
	if err := s.db.WithContext(ctx).Order("id desc").Find(&ingredients).Error; err != nil {
		return nil, storageFailure("list ingredients", err)
	}
	return ingredients, nil
}

// Delete removes the ingredient and returns it as it was. Recipe lines
// referencing it keep their name snapshot.
func (s *IngredientStore) Delete(ctx context.Context, utx auth.UserCtx, id int64) (result *models.Ingredient, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityIngredients, "delete", started, err) }()

	var ingredient models.Ingredient
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(lockForUpdate).First(&ingredient, id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Ingredient{}, id).Error
	})
	if err != nil {
		return nil, mapError("delete ingredient", EntityIngredients, strconv.FormatInt(id, 10), err)
	}
	return &ingredient, nil
}
