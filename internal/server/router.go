package server

import (
	"context"
	"net/http"

	"cookbook/internal/handlers"
	applog "cookbook/internal/log"
)

func newRouter(metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	applog.Debug(context.Background(), "route registered", "path", "/healthz")
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
		applog.Debug(context.Background(), "route registered", "path", "/metrics")
	}

	ingredients := handlers.RequireToken(http.HandlerFunc(handlers.IngredientResource))
	mux.Handle("/api/ingredients", ingredients)
	mux.Handle("/api/ingredients/", ingredients)
	applog.Debug(context.Background(), "route registered", "path", "/api/ingredients", "protected", true)

	recipes := handlers.RequireToken(http.HandlerFunc(handlers.RecipeResource))
	mux.Handle("/api/recipes", recipes)
	mux.Handle("/api/recipes/", recipes)
	applog.Debug(context.Background(), "route registered", "path", "/api/recipes", "protected", true)

	return handlers.RequestID(mux)
}
