package handlers

import (
	"net/http"

	"cookbook/internal/auth"
	applog "cookbook/internal/log"
	"cookbook/internal/store"
)

const ingredientsPath = "/api/ingredients"

// IngredientResource handles CRUD interactions for ingredient records.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	if stores == nil {
		applog.Debug(r.Context(), "ingredient request without stores")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	utx, ok := currentUser(r)
	if !ok {
		applog.Debug(r.Context(), "ingredient request without user context")
		writeJSONError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return
	}

	id, hasID, err := resourceID(r, ingredientsPath)
	if err != nil {
		applog.Debug(r.Context(), "invalid ingredient identifier", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !hasID {
		switch r.Method {
		case http.MethodGet:
			listIngredients(w, r, utx)
		case http.MethodPost:
			createIngredient(w, r, utx)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		showIngredient(w, r, utx, id)
	case http.MethodPatch, http.MethodPut:
		updateIngredient(w, r, utx, id)
	case http.MethodDelete:
		deleteIngredient(w, r, utx, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listIngredients(w http.ResponseWriter, r *http.Request, utx auth.UserCtx) {
	ingredients, err := stores.Ingredients.List(r.Context(), utx)
	if err != nil {
		writeStoreError(w, r, "list ingredients", err)
		return
	}
	writeData(w, ingredients)
}

func showIngredient(w http.ResponseWriter, r *http.Request, utx auth.UserCtx, id int64) {
	ingredient, err := stores.Ingredients.Get(r.Context(), utx, id)
	if err != nil {
		writeStoreError(w, r, "load ingredient", err)
		return
	}
	writeData(w, ingredient)
}

func createIngredient(w http.ResponseWriter, r *http.Request, utx auth.UserCtx) {
	var patch store.IngredientPatch
	if err := decodePatch(r, &patch); err != nil {
		applog.Debug(r.Context(), "invalid ingredient create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ingredient, err := stores.Ingredients.Create(r.Context(), utx, patch)
	if err != nil {
		writeStoreError(w, r, "create ingredient", err)
		return
	}
	applog.Info(r.Context(), "ingredient created", "id", ingredient.ID, "user", utx.UserID)
	writeData(w, ingredient)
}

func updateIngredient(w http.ResponseWriter, r *http.Request, utx auth.UserCtx, id int64) {
	var patch store.IngredientPatch
	if err := decodePatch(r, &patch); err != nil {
		applog.Debug(r.Context(), "invalid ingredient update payload", "error", err, "id", id)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ingredient, err := stores.Ingredients.Update(r.Context(), utx, id, patch)
	if err != nil {
		writeStoreError(w, r, "update ingredient", err)
		return
	}
	writeData(w, ingredient)
}

func deleteIngredient(w http.ResponseWriter, r *http.Request, utx auth.UserCtx, id int64) {
	ingredient, err := stores.Ingredients.Delete(r.Context(), utx, id)
	if err != nil {
		writeStoreError(w, r, "delete ingredient", err)
		return
	}
	applog.Info(r.Context(), "ingredient deleted", "id", id, "user", utx.UserID)
	writeData(w, ingredient)
}
