// Package store persists ingredients, recipes and recipe lines. Stores turn
// patches into transactional multi-table writes and map every storage result
// into NotFoundError, StorageError or ValidationError.
package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"strings"
	"time"

	applog "cookbook/internal/log"
	"cookbook/internal/metrics"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entity names reported by NotFoundError and metrics. They match the table
// names.
const (
	EntityIngredients       = "ingredients"
	EntityRecipes           = "recipes"
	EntityRecipeIngredients = "recipe_ingredients"
)

// Values written when a patch omits a field.
const (
	DefaultIngredientName = "untitled"
	DefaultRecipeTitle    = "Untitled Recipe"
	DefaultQuantity       = "1 unit"
)

// Stores bundles the three stores over one pool.
type Stores struct {
	Ingredients *IngredientStore
	Lines       *RecipeIngredientStore
	Recipes     *RecipeStore
}

// New builds every store over db. rec may be nil.
func New(db *gorm.DB, rec *metrics.Recorder) *Stores {
	lines := NewRecipeIngredientStore(db, rec)
	return &Stores{
		Ingredients: NewIngredientStore(db, rec),
		Lines:       lines,
		Recipes:     NewRecipeStore(db, lines, rec),
	}
}

// lockForUpdate is rendered as FOR UPDATE on postgres. The sqlite dialect
// drops it; sqlite serialises writers instead.
var lockForUpdate = clause.Locking{Strength: clause.LockingStrengthUpdate}

// readOptions returns the options for read-only transactions spanning several
// queries. Postgres needs repeatable read for a single snapshot; sqlite
// already reads from one snapshot per transaction.
func readOptions(db *gorm.DB) *sql.TxOptions {
	if db.Dialector.Name() == "postgres" {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

type instrument struct {
	metrics *metrics.Recorder
}

func (i instrument) finish(ctx context.Context, entity, operation string, started time.Time, err error) {
	i.metrics.Observe(entity, operation, outcomeOf(err), started)
	if err != nil {
		applog.Debug(ctx, "store operation rolled back", "entity", entity, "operation", operation, "error", err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrValidation):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeStorageError
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validatePatch reports the first violated rule of patch as a ValidationError.
func validatePatch(patch any) error {
	err := validate.Struct(patch)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		return &ValidationError{Field: field, Message: messageFor(fe)}
	}
	return &ValidationError{Message: err.Error()}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func stringOr(value *string, def string) string {
	if value == nil {
		return def
	}
	return *value
}

func int64Or(value *int64, def int64) int64 {
	if value == nil {
		return def
	}
	return *value
}
