package handlers

import (
	"net/http"

	"cookbook/internal/auth"
	applog "cookbook/internal/log"
	"cookbook/internal/store"
)

const recipesPath = "/api/recipes"

// RecipeResource handles CRUD interactions for recipes. Every response
// carries the recipe together with its ingredient lines.
func RecipeResource(w http.ResponseWriter, r *http.Request) {
	if stores == nil {
		applog.Debug(r.Context(), "recipe request without stores")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	utx, ok := currentUser(r)
	if !ok {
		applog.Debug(r.Context(), "recipe request without user context")
		writeJSONError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return
	}

	id, hasID, err := resourceID(r, recipesPath)
	if err != nil {
		applog.Debug(r.Context(), "invalid recipe identifier", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !hasID {
		switch r.Method {
		case http.MethodGet:
			listRecipes(w, r, utx)
		case http.MethodPost:
			createRecipe(w, r, utx)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		showRecipe(w, r, utx, id)
	case http.MethodPatch, http.MethodPut:
		updateRecipe(w, r, utx, id)
	case http.MethodDelete:
		deleteRecipe(w, r, utx, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listRecipes(w http.ResponseWriter, r *http.Request, utx auth.UserCtx) {
	recipes, err := stores.Recipes.List(r.Context(), utx)
	if err != nil {
		writeStoreError(w, r, "list recipes", err)
		return
	}
	writeData(w, recipes)
}

func showRecipe(w http.ResponseWriter, r *http.Request, utx auth.UserCtx, id int64) {
	recipe, err := stores.Recipes.Get(r.Context(), utx, id)
	if err != nil {
		writeStoreError(w, r, "load recipe", err)
		return
	}
	writeData(w, recipe)
}

func createRecipe(w http.ResponseWriter, r *http.Request, utx auth.UserCtx) {
	var patch store.RecipePatch
	if err := decodePatch(r, &patch); err != nil {
		applog.Debug(r.Context(), "invalid recipe create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	recipe, err := stores.Recipes.Create(r.Context(), utx, patch)
	if err != nil {
		writeStoreError(w, r, "create recipe", err)
		return
	}
	applog.Info(r.Context(), "recipe created", "id", recipe.Recipe.ID, "lines", len(recipe.Lines), "user", utx.UserID)
	writeData(w, recipe)
}

func updateRecipe(w http.ResponseWriter, r *http.Request, utx auth.UserCtx, id int64) {
	var patch store.RecipePatch
	if err := decodePatch(r, &patch); err != nil {
		applog.Debug(r.Context(), "invalid recipe update payload", "error", err, "id", id)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	recipe, err := stores.Recipes.Update(r.Context(), utx, id, patch)
	if err != nil {
		writeStoreError(w, r, "update recipe", err)
		return
	}
	writeData(w, recipe)
}

func deleteRecipe(w http.ResponseWriter, r *http.Request, utx auth.UserCtx, id int64) {
	recipe, err := stores.Recipes.Delete(r.Context(), utx, id)
	if err != nil {
		writeStoreError(w, r, "delete recipe", err)
		return
	}
	applog.Info(r.Context(), "recipe deleted", "id", id, "lines", len(recipe.Lines), "user", utx.UserID)
	writeData(w, recipe)
}
