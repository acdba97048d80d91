package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookbook/internal/db/mock"
	"cookbook/models"
)

func lineIngredientIDs(lines []models.RecipeIngredient) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.IngredientID)
	}
	return ids
}

func TestRecipeStoreCreateWithLines(t *testing.T) {
	t.Parallel()

	stores, _ := newTestStores(t)
	ctx := context.Background()

	created, err := stores.Recipes.Create(ctx, testUser, RecipePatch{
		Title:     ptr("pesto"),
		CreatorID: ptr(int64(7)),
		Ingredients: []RecipeLinePatch{
			{IngredientID: mock.SeedIngredientID, Quantity: ptr("2 cups")},
			{IngredientID: 3, IngredientName: ptr("parmesan")},
		},
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, created.Recipe.ID, int64(identityStart))
	assert.Equal(t, "pesto", created.Recipe.Title)
	assert.Equal(t, int64(7), created.Recipe.CreatorID)
	assert.False(t, created.Recipe.CreatedAt.IsZero())
	require.Len(t, created.Lines, 2)
	assert.Equal(t, []int64{mock.SeedIngredientID, 3}, lineIngredientIDs(created.Lines))
	assert.Equal(t, "2 cups", created.Lines[0].Quantity)
	assert.Equal(t, mock.SeedIngredientName, created.Lines[0].IngredientName)
	assert.Equal(t, DefaultQuantity, created.Lines[1].Quantity)
	assert.Equal(t, "parmesan", created.Lines[1].IngredientName)
	for _, line := range created.Lines {
		assert.Equal(t, created.Recipe.ID, line.RecipeID)
		assert.Equal(t, testUser.UserID, line.CreatorID)
	}

	fetched, err := stores.Recipes.Get(ctx, testUser, created.Recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Recipe.ID, fetched.Recipe.ID)
	assert.Equal(t, created.Recipe.Title, fetched.Recipe.Title)
	assert.Equal(t, lineIngredientIDs(created.Lines), lineIngredientIDs(fetched.Lines))
}

func TestRecipeStoreCreateDefaults(t *testing.T) {
	t.Parallel()

	stores, _ := newTestStores(t)

	created, err := stores.Recipes.Create(context.Background(), testUser, RecipePatch{})
	require.NoError(t, err)
	assert.Equal(t, DefaultRecipeTitle, created.Recipe.Title)
	assert.Zero(t, created.Recipe.CreatorID)
	assert.NotNil(t, created.Lines)
	assert.Empty(t, created.Lines)
}

func TestRecipeStoreCreateRollsBackOnFailingLine(t *testing.T) {
	t.Parallel()

	stores, database := newTestStores(t)
	ctx := context.Background()

	_, err := stores.Recipes.Create(ctx, testUser, RecipePatch{
		Title: ptr("doubled"),
		Ingredients: []RecipeLinePatch{
			{IngredientID: 5},
			{IngredientID: 5},
		},
	})
	require.ErrorIs(t, err, ErrStorage)

	var recipes int64
	require.NoError(t, database.Model(&models.Recipe{}).Count(&recipes).Error)
	assert.Equal(t, int64(1), recipes, "only the seed recipe remains")

	var lines int64
	require.NoError(t, database.Model(&models.RecipeIngredient{}).Count(&lines).Error)
	assert.Equal(t, int64(1), lines, "only the seed line remains")
}

func TestRecipeStoreCreateValidatesLines(t *testing.T) {
	t.Parallel()

	stores, _ := newTestStores(t)

	_, err := stores.Recipes.Create(context.Background(), testUser, RecipePatch{
		Ingredients: []RecipeLinePatch{{Quantity: ptr("1 pinch")}},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ingredients[0].ingredient_id", verr.Field)
}

func TestRecipeStoreUpdateReplacesLines(t *testing.T) {
	t.Parallel()

	stores, _ := newTestStores(t)
	ctx := context.Background()

	created, err := stores.Recipes.Create(ctx, testUser, RecipePatch{
		Title:       ptr("soup"),
		Ingredients: []RecipeLinePatch{{IngredientID: 1}, {IngredientID: 2}, {IngredientID: 3}},
	})
	require.NoError(t, err)

	updated, err := stores.Recipes.Update(ctx, testUser, created.Recipe.ID, RecipePatch{
		Title:       ptr("thin soup"),
		Ingredients: []RecipeLinePatch{{IngredientID: 4, Quantity: ptr("1 l")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "thin soup", updated.Recipe.Title)
	assert.Equal(t, []int64{4}, lineIngredientIDs(updated.Lines))
	assert.Equal(t, "1 l", updated.Lines[0].Quantity)

	fetched, err := stores.Recipes.Get(ctx, testUser, created.Recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, lineIngredientIDs(fetched.Lines))
}

func TestRecipeStoreUpdateNilLinesKeepsThem(t *testing.T) {
	t.Parallel()

	stores, _ := newTestStores(t)
	ctx := context.Background()

	updated, err := stores.Recipes.Update(ctx, testUser, mock.SeedRecipeID, RecipePatch{Title: ptr("spaghetti al pesto")})
	require.NoError(t, err)
	assert.Equal(t, "spaghetti al pesto", updated.Recipe.Title)
	assert.Equal(t, []int64{mock.SeedIngredientID}, lineIngredientIDs(updated.Lines))
}

func TestRecipeStoreUpdateEmptyLinesClearsThem(t *testing.T) {
	t.Parallel()

	stores, _ := newTestStores(t)
	ctx := context.Background()

	updated, err := stores.Recipes.Update(ctx, testUser, mock.SeedRecipeID, RecipePatch{Ingredients: []RecipeLinePatch{}})
	require.NoError(t, err)
	assert.Empty(t, updated.Lines)
	assert.Equal(t, DefaultRecipeTitle, updated.Recipe.Title, "absent title resets to the default")
	assert.Zero(t, updated.Recipe.CreatorID)
}

func TestRecipeStoreUpdateRollsBackOnFailingLine(t *testing.T) {
	t.Parallel()

	stores, _ := newTestStores(t)
	ctx := context.Background()

	_, err := stores.Recipes.Update(ctx, testUser, mock.SeedRecipeID, RecipePatch{
		Title:       ptr("broken"),
		Ingredients: []RecipeLinePatch{{IngredientID: 8}, {IngredientID: 8}},
	})
	require.ErrorIs(t, err, ErrStorage)

	fetched, err := stores.Recipes.Get(ctx, testUser, mock.SeedRecipeID)
	require.NoError(t, err)
	assert.Equal(t, mock.SeedRecipeTitle, fetched.Recipe.Title)
	assert.Equal(t, []int64{mock.SeedIngredientID}, lineIngredientIDs(fetched.Lines))
	assert.Equal(t, mock.SeedQuantity, fetched.Lines[0].Quantity)
}

func TestRecipeStoreMissingRows(t *testing.T) {
	t.Parallel()

	stores, _ := newTestStores(t)
	ctx := context.Background()

	_, err := stores.Recipes.Get(ctx, testUser, 999999)
	requireNotFound(t, err, EntityRecipes, "999999")

	_, err = stores.Recipes.Update(ctx, testUser, 999999, RecipePatch{Ingredients: []RecipeLinePatch{{IngredientID: 1}}})
	requireNotFound(t, err, EntityRecipes, "999999")

	_, err = stores.Recipes.Delete(ctx, testUser, 999999)
	requireNotFound(t, err, EntityRecipes, "999999")

	orphans, err := stores.Lines.ListByRecipe(ctx, testUser, 999999)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestRecipeStoreDeleteCascadesLines(t *testing.T) {
	t.Parallel()

	stores, _ := newTestStores(t)
	ctx := context.Background()

	deleted, err := stores.Recipes.Delete(ctx, testUser, mock.SeedRecipeID)
	require.NoError(t, err)
	assert.Equal(t, mock.SeedRecipeTitle, deleted.Recipe.Title)
	assert.Equal(t, []int64{mock.SeedIngredientID}, lineIngredientIDs(deleted.Lines))

	_, err = stores.Recipes.Get(ctx, testUser, mock.SeedRecipeID)
	requireNotFound(t, err, EntityRecipes, "1")

	lines, err := stores.Lines.ListByRecipe(ctx, testUser, mock.SeedRecipeID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	_, err = stores.Ingredients.Get(ctx, testUser, mock.SeedIngredientID)
	assert.NoError(t, err, "ingredients survive recipe deletion")
}

func TestRecipeStoreListNewestFirstWithLines(t *testing.T) {
	t.Parallel()

	stores, _ := newTestStores(t)
	ctx := context.Background()

	created, err := stores.Recipes.Create(ctx, testUser, RecipePatch{
		Title:       ptr("salad"),
		Ingredients: []RecipeLinePatch{{IngredientID: 12}, {IngredientID: 11}},
	})
	require.NoError(t, err)

	list, err := stores.Recipes.List(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, created.Recipe.ID, list[0].Recipe.ID)
	assert.Equal(t, []int64{11, 12}, lineIngredientIDs(list[0].Lines))
	assert.Equal(t, mock.SeedRecipeID, list[1].Recipe.ID)
	assert.Equal(t, []int64{mock.SeedIngredientID}, lineIngredientIDs(list[1].Lines))
}

func TestTomatoSoupEndToEnd(t *testing.T) {
	t.Parallel()

	stores, _ := newTestStores(t)
	ctx := context.Background()

	tomatoes, err := stores.Ingredients.Create(ctx, testUser, IngredientPatch{Name: ptr("tomatoes")})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, tomatoes.ID, int64(identityStart))

	soup, err := stores.Recipes.Create(ctx, testUser, RecipePatch{
		Title:       ptr("tomato soup"),
		Ingredients: []RecipeLinePatch{{IngredientID: tomatoes.ID, Quantity: ptr("2 cups")}},
	})
	require.NoError(t, err)
	require.Len(t, soup.Lines, 1)
	assert.Equal(t, "tomatoes", soup.Lines[0].IngredientName)
	assert.Equal(t, "2 cups", soup.Lines[0].Quantity)

	fetched, err := stores.Recipes.Get(ctx, testUser, soup.Recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "tomato soup", fetched.Recipe.Title)
	require.Len(t, fetched.Lines, 1)
	assert.Equal(t, tomatoes.ID, fetched.Lines[0].IngredientID)

	_, err = stores.Recipes.Delete(ctx, testUser, soup.Recipe.ID)
	require.NoError(t, err)

	list, err := stores.Recipes.List(ctx, testUser)
	require.NoError(t, err)
	for _, aggregate := range list {
		assert.NotEqual(t, soup.Recipe.ID, aggregate.Recipe.ID)
	}
}
