package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cookbook/internal/auth"
	"cookbook/internal/metrics"
	"cookbook/models"

	"gorm.io/gorm"
)

// LinePatch carries the fields of one recipe line. RecipeID and IngredientID
// are required on create and ignored on update.
type LinePatch struct {
	RecipeID       *int64  `json:"recipe_id" validate:"required,gt=0"`
	IngredientID   *int64  `json:"ingredient_id" validate:"required,gt=0"`
	IngredientName *string `json:"ingredient_name" validate:"omitempty,max=255"`
	Quantity       *string `json:"quantity" validate:"omitempty,max=255"`
}

// RecipeIngredientStore persists rows of the recipe_ingredients junction
// table, keyed by (recipe id, ingredient id).
type RecipeIngredientStore struct {
	db *gorm.DB
	// bound is set when db is an open transaction owned by the caller.
	bound bool
	instrument
}

func NewRecipeIngredientStore(db *gorm.DB, rec *metrics.Recorder) *RecipeIngredientStore {
	return &RecipeIngredientStore{db: db, instrument: instrument{metrics: rec}}
}

// WithTx returns a store that runs every operation on tx and leaves commit
// and rollback to the caller. It records no metrics of its own.
func (s *RecipeIngredientStore) WithTx(tx *gorm.DB) *RecipeIngredientStore {
	return &RecipeIngredientStore{db: tx, bound: true}
}

// run executes fn in a transaction, or directly on the bound transaction.
func (s *RecipeIngredientStore) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.bound {
		return fn(s.db.WithContext(ctx))
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func lineKey(recipeID, ingredientID int64) string {
	return fmt.Sprintf("%d:%d", recipeID, ingredientID)
}

func byLineKey(tx *gorm.DB, recipeID, ingredientID int64) *gorm.DB {
	return tx.Where("recipe_id = ? AND ingredient_id = ?", recipeID, ingredientID)
}

// Create inserts one line. The creator is taken from utx. A key that already
// exists fails with a constraint StorageError.
func (s *RecipeIngredientStore) Create(ctx context.Context, utx auth.UserCtx, patch LinePatch) (result *models.RecipeIngredient, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityRecipeIngredients, "create", started, err) }()

	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	recipeID, ingredientID := *patch.RecipeID, *patch.IngredientID
	var line models.RecipeIngredient
	err = s.run(ctx, func(tx *gorm.DB) error {
		created, err := createLine(tx, utx, patch)
		if err != nil {
			return err
		}
		line = *created
		return nil
	})
	if err != nil {
		return nil, mapError("create recipe ingredient", EntityRecipeIngredients, lineKey(recipeID, ingredientID), err)
	}
	return &line, nil
}

// createLine inserts and re-reads a validated line on tx.
func createLine(tx *gorm.DB, utx auth.UserCtx, patch LinePatch) (*models.RecipeIngredient, error) {
	recipeID, ingredientID := *patch.RecipeID, *patch.IngredientID

	name, err := ingredientNameSnapshot(tx, patch)
	if err != nil {
		return nil, err
	}

	line := models.RecipeIngredient{
		RecipeID:       recipeID,
		IngredientID:   ingredientID,
		IngredientName: name,
		Quantity:       stringOr(patch.Quantity, DefaultQuantity),
		CreatorID:      utx.UserID,
	}
	if err := tx.Create(&line).Error; err != nil {
		return nil, storageFailure("create recipe ingredient", err)
	}

	var stored models.RecipeIngredient
	if err := byLineKey(tx, recipeID, ingredientID).First(&stored).Error; err != nil {
		return nil, mapError("create recipe ingredient", EntityRecipeIngredients, lineKey(recipeID, ingredientID), err)
	}
	return &stored, nil
}

// ingredientNameSnapshot returns the patch's name, or the current name of the
// referenced ingredient. A missing ingredient yields an empty name.
func ingredientNameSnapshot(tx *gorm.DB, patch LinePatch) (string, error) {
	if patch.IngredientName != nil && strings.TrimSpace(*patch.IngredientName) != "" {
		return *patch.IngredientName, nil
	}

	var names []string
	if err := tx.Model(&models.Ingredient{}).Where("id = ?", *patch.IngredientID).Limit(1).Pluck("name", &names).Error; err != nil {
		return "", storageFailure("lookup ingredient name", err)
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[0], nil
}

func (s *RecipeIngredientStore) Get(ctx context.Context, utx auth.UserCtx, recipeID, ingredientID int64) (result *models.RecipeIngredient, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityRecipeIngredients, "get", started, err) }()

	var line models.RecipeIngredient
	if err := byLineKey(s.db.WithContext(ctx), recipeID, ingredientID).First(&line).Error; err != nil {
		return nil, mapError("get recipe ingredient", EntityRecipeIngredients, lineKey(recipeID, ingredientID), err)
	}
	return &line, nil
}

// Update rewrites the quantity of a line. A nil Quantity resets it to
// DefaultQuantity; the key fields of patch are ignored.
func (s *RecipeIngredientStore) Update(ctx context.Context, utx auth.UserCtx, recipeID, ingredientID int64, patch LinePatch) (result *models.RecipeIngredient, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityRecipeIngredients, "update", started, err) }()

	if patch.Quantity != nil && len(*patch.Quantity) > 255 {
		return nil, &ValidationError{Field: "quantity", Message: "must be at most 255 characters"}
	}

	var line models.RecipeIngredient
	err = s.run(ctx, func(tx *gorm.DB) error {
		if err := byLineKey(tx.Clauses(lockForUpdate), recipeID, ingredientID).First(&line).Error; err != nil {
			return err
		}
		if err := byLineKey(tx.Model(&models.RecipeIngredient{}), recipeID, ingredientID).Updates(map[string]any{
			"quantity": stringOr(patch.Quantity, DefaultQuantity),
			"mtime":    tx.NowFunc(),
		}).Error; err != nil {
			return err
		}
		return byLineKey(tx, recipeID, ingredientID).First(&line).Error
	})
	if err != nil {
		return nil, mapError("update recipe ingredient", EntityRecipeIngredients, lineKey(recipeID, ingredientID), err)
	}
	return &line, nil
}

// List returns every line ordered by recipe id descending, then ingredient id.
func (s *RecipeIngredientStore) List(ctx context.Context, utx auth.UserCtx) (result []models.RecipeIngredient, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityRecipeIngredients, "list", started, err) }()

	lines := make([]models.RecipeIngredient, 0)
	if err := s.db.WithContext(ctx).Order("recipe_id desc").Order("ingredient_id asc").Find(&lines).Error; err != nil {
		return nil, storageFailure("list recipe ingredients", err)
	}
	return lines, nil
}

func (s *RecipeIngredientStore) Delete(ctx context.Context, utx auth.UserCtx, recipeID, ingredientID int64) (result *models.RecipeIngredient, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityRecipeIngredients, "delete", started, err) }()

	var line models.RecipeIngredient
	err = s.run(ctx, func(tx *gorm.DB) error {
		if err := byLineKey(tx.Clauses(lockForUpdate), recipeID, ingredientID).First(&line).Error; err != nil {
			return err
		}
		return byLineKey(tx, recipeID, ingredientID).Delete(&models.RecipeIngredient{}).Error
	})
	if err != nil {
		return nil, mapError("delete recipe ingredient", EntityRecipeIngredients, lineKey(recipeID, ingredientID), err)
	}
	return &line, nil
}

// ListByRecipe returns the lines of one recipe ordered by ingredient id. An
// unknown recipe yields an empty slice.
func (s *RecipeIngredientStore) ListByRecipe(ctx context.Context, utx auth.UserCtx, recipeID int64) (result []models.RecipeIngredient, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityRecipeIngredients, "list_by_recipe", started, err) }()

	lines, err := listLinesByRecipe(s.db.WithContext(ctx), recipeID)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func listLinesByRecipe(tx *gorm.DB, recipeID int64) ([]models.RecipeIngredient, error) {
	lines := make([]models.RecipeIngredient, 0)
	if err := tx.Where("recipe_id = ?", recipeID).Order("ingredient_id asc").Find(&lines).Error; err != nil {
		return nil, storageFailure("list recipe ingredients", err)
	}
	return lines, nil
}

// DeleteByRecipe removes every line of one recipe and reports how many rows
// were deleted.
func (s *RecipeIngredientStore) DeleteByRecipe(ctx context.Context, utx auth.UserCtx, recipeID int64) (removed int64, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityRecipeIngredients, "delete_by_recipe", started, err) }()

	err = s.run(ctx, func(tx *gorm.DB) error {
		res := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{})
		if res.Error != nil {
			return storageFailure("delete recipe ingredients", res.Error)
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, storageFailure("delete recipe ingredients", err)
	}
	return removed, nil
}
