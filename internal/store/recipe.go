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

// RecipePatch carries the writable recipe fields and, optionally, the full
// set of lines. A nil Ingredients slice leaves existing lines alone on update;
// a non-nil one, even empty, replaces them.
type RecipePatch struct {
	Title       *string           `json:"title" validate:"omitempty,max=255"`
	CreatorID   *int64            `json:"cid"`
	Ingredients []RecipeLinePatch `json:"ingredients" validate:"omitempty,dive"`
}

// RecipeLinePatch is one line of a RecipePatch. The recipe id comes from the
// recipe being written.
type RecipeLinePatch struct {
	IngredientID   int64   `json:"ingredient_id" validate:"required,gt=0"`
	IngredientName *string `json:"ingredient_name" validate:"omitempty,max=255"`
	Quantity       *string `json:"quantity" validate:"omitempty,max=255"`
}

func (p RecipeLinePatch) forRecipe(recipeID int64) LinePatch {
	ingredientID := p.IngredientID
	return LinePatch{
		RecipeID:       &recipeID,
		IngredientID:   &ingredientID,
		IngredientName: p.IngredientName,
		Quantity:       p.Quantity,
	}
}

// RecipeAggregate is a recipe together with its lines ordered by ingredient
// id.
type RecipeAggregate struct {
	Recipe models.Recipe             `json:"recipe"`
	Lines  []models.RecipeIngredient `json:"ingredients"`
}

// RecipeStore persists recipes as aggregates. Every write touches the recipe
// row and its lines in one transaction.
type RecipeStore struct {
	db    *gorm.DB
	lines *RecipeIngredientStore
	instrument
}

func NewRecipeStore(db *gorm.DB, lines *RecipeIngredientStore, rec *metrics.Recorder) *RecipeStore {
	if lines == nil {
		lines = NewRecipeIngredientStore(db, nil)
	}
	return &RecipeStore{db: db, lines: lines, instrument: instrument{metrics: rec}}
}

// Create inserts the recipe and its lines. Any failing line rolls back the
// recipe as well.
func (s *RecipeStore) Create(ctx context.Context, utx auth.UserCtx, patch RecipePatch) (result *RecipeAggregate, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityRecipes, "create", started, err) }()

	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		Title:     stringOr(patch.Title, DefaultRecipeTitle),
		CreatorID: int64Or(patch.CreatorID, 0),
	}
	var aggregate *RecipeAggregate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&recipe).Error; err != nil {
			return storageFailure("create recipe", err)
		}
		if err := s.insertLines(ctx, tx, utx, recipe.ID, patch.Ingredients); err != nil {
			return err
		}
		loaded, err := loadAggregate(tx, recipe.ID, false)
		if err != nil {
			return err
		}
		aggregate = loaded
		return nil
	})
	if err != nil {
		return nil, mapError("create recipe", EntityRecipes, strconv.FormatInt(recipe.ID, 10), err)
	}
	return aggregate, nil
}

func (s *RecipeStore) Get(ctx context.Context, utx auth.UserCtx, id int64) (result *RecipeAggregate, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityRecipes, "get", started, err) }()

	var aggregate *RecipeAggregate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := loadAggregate(tx, id, false)
		if err != nil {
			return err
		}
		aggregate = loaded
		return nil
	}, readOptions(s.db))
	if err != nil {
		return nil, mapError("get recipe", EntityRecipes, strconv.FormatInt(id, 10), err)
	}
	return aggregate, nil
}

// Update rewrites title and cid, resetting absent ones to their defaults,
// and replaces the lines when patch.Ingredients is non-nil.
func (s *RecipeStore) Update(ctx context.Context, utx auth.UserCtx, id int64, patch RecipePatch) (result *RecipeAggregate, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityRecipes, "update", started, err) }()

	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var aggregate *RecipeAggregate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Recipe
		if err := tx.Clauses(lockForUpdate).First(&current, id).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Recipe{}).Where("id = ?", id).Updates(map[string]any{
			"title": stringOr(patch.Title, DefaultRecipeTitle),
			"cid":   int64Or(patch.CreatorID, 0),
			"mtime": tx.NowFunc(),
		}).Error; err != nil {
			return storageFailure("update recipe", err)
		}

		if patch.Ingredients != nil {
			if _, err := s.lines.WithTx(tx).DeleteByRecipe(ctx, utx, id); err != nil {
				return err
			}
			if err := s.insertLines(ctx, tx, utx, id, patch.Ingredients); err != nil {
				return err
			}
		}

		loaded, err := loadAggregate(tx, id, false)
		if err != nil {
			return err
		}
		aggregate = loaded
		return nil
	})
	if err != nil {
		return nil, mapError("update recipe", EntityRecipes, strconv.FormatInt(id, 10), err)
	}
	return aggregate, nil
}

// List returns every recipe with its lines, newest id first.
func (s *RecipeStore) List(ctx context.Context, utx auth.UserCtx) (result []RecipeAggregate, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityRecipes, "list", started, err) }()

	aggregates := make([]RecipeAggregate, 0)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipes []models.Recipe
		if err := tx.Order("id desc").Find(&recipes).Error; err != nil {
			return err
		}
		for _, recipe := range recipes {
			lines, err := listLinesByRecipe(tx, recipe.ID)
			if err != nil {
				return err
			}
			aggregates = append(aggregates, RecipeAggregate{Recipe: recipe, Lines: lines})
		}
		return nil
	}, readOptions(s.db))
	if err != nil {
		return nil, storageFailure("list recipes", err)
	}
	return aggregates, nil
}

// Delete removes the recipe and all of its lines and returns the aggregate
// as it was before the delete.
func (s *RecipeStore) Delete(ctx context.Context, utx auth.UserCtx, id int64) (result *RecipeAggregate, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, EntityRecipes, "delete", started, err) }()

	var aggregate *RecipeAggregate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := loadAggregate(tx, id, true)
		if err != nil {
			return err
		}
		if _, err := s.lines.WithTx(tx).DeleteByRecipe(ctx, utx, id); err != nil {
			return err
		}
		if err := tx.Delete(&models.Recipe{}, id).Error; err != nil {
			return storageFailure("delete recipe", err)
		}
		aggregate = loaded
		return nil
	})
	if err != nil {
		return nil, mapError("delete recipe", EntityRecipes, strconv.FormatInt(id, 10), err)
	}
	return aggregate, nil
}

func (s *RecipeStore) insertLines(ctx context.Context, tx *gorm.DB, utx auth.UserCtx, recipeID int64, patches []RecipeLinePatch) error {
	lines := s.lines.WithTx(tx)
	for _, patch := range patches {
		if _, err := lines.Create(ctx, utx, patch.forRecipe(recipeID)); err != nil {
			return err
		}
	}
	return nil
}

// loadAggregate reads the recipe row, optionally locked, and its lines on tx.
// A missing recipe surfaces as gorm.ErrRecordNotFound.
func loadAggregate(tx *gorm.DB, id int64, lock bool) (*RecipeAggregate, error) {
	query := tx
	if lock {
		query = tx.Clauses(lockForUpdate)
	}

	var recipe models.Recipe
	if err := query.First(&recipe, id).Error; err != nil {
		return nil, err
	}

	lines, err := listLinesByRecipe(tx, id)
	if err != nil {
		return nil, err
	}
	return &RecipeAggregate{Recipe: recipe, Lines: lines}, nil
}
