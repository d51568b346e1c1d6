package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"

	"tienda-ledger/config"
	httpLayer "tienda-ledger/http"
	"tienda-ledger/repository"
	"tienda-ledger/service"
)

func main() {
	cfg := config.MustLoad()
	logg := config.GetLogger()

	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		logg.Fatalf("snowflake node: %v", err)
	}

	var (
		debtStore    repository.DebtStore
		productStore repository.ProductStore
		orderStore   repository.OrderStore
		wishStore    repository.WishStore
		cache        repository.CacheRepository
	)

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		store := repository.NewRedisStore(client, node)
		debtStore, productStore, orderStore, wishStore = store, store, store, store
		cache = repository.NewRedisCache(client, cfg.CacheTTL)
		logg.WithField("addr", cfg.RedisAddr).Info("usando almacén Redis")
	} else {
		store := repository.NewMemoryStore(node)
		debtStore, productStore, orderStore, wishStore = store, store, store, store
		cache = repository.NewMockCache()
		logg.Info("REDIS_ADDR vacío, usando almacén en memoria")
	}

	debtService := service.NewDebtService(debtStore, cache, node)
	debtHandler := httpLayer.NewDebtHandler(debtService)

	productService := service.NewProductService(productStore)
	productHandler := httpLayer.NewProductHandler(productService)

	orderService := service.NewOrderService(orderStore, wishStore, node)
	orderHandler := httpLayer.NewOrderHandler(orderService)

	rateLimiter := httpLayer.NewRateLimiter(cfg.RateLimit, time.Minute)
	defer rateLimiter.Stop()

	limit := func(h http.HandlerFunc) http.Handler {
		return httpLayer.RateLimitMiddleware(rateLimiter, h)
	}

	mux := http.NewServeMux()

	mux.Handle("POST /deudas", limit(debtHandler.CreateAccount))
	mux.Handle("GET /deudas", limit(debtHandler.ListAccounts))
	mux.Handle("GET /deudas/{id}", limit(debtHandler.GetAccount))
	mux.Handle("GET /deudas/{id}/stream", limit(debtHandler.StreamAccount))
	mux.Handle("POST /deudas/{id}/productos", limit(debtHandler.AddItem))
	mux.Handle("PUT /deudas/{id}/productos/{item}", limit(debtHandler.EditItem))
	mux.Handle("DELETE /deudas/{id}/productos/{item}", limit(debtHandler.DeleteItem))
	mux.Handle("POST /deudas/{id}/pagos", limit(debtHandler.ApplyPayment))

	mux.Handle("POST /productos", limit(productHandler.Create))
	mux.Handle("GET /productos", limit(productHandler.List))
	mux.Handle("GET /productos/{id}", limit(productHandler.Get))
	mux.Handle("PUT /productos/{id}", limit(productHandler.Update))
	mux.Handle("DELETE /productos/{id}", limit(productHandler.Delete))

	mux.Handle("POST /pedidos", limit(orderHandler.Create))
	mux.Handle("GET /pedidos", limit(orderHandler.List))
	mux.Handle("GET /pedidos/{id}", limit(orderHandler.Get))
	mux.Handle("PUT /pedidos/{id}", limit(orderHandler.Update))
	mux.Handle("DELETE /pedidos/{id}", limit(orderHandler.Delete))
	mux.Handle("POST /pedidos/{id}/realizado", limit(orderHandler.ToggleRealizado))
	mux.Handle("POST /pedidos/{id}/productos", limit(orderHandler.AddItem))
	mux.Handle("PUT /pedidos/{id}/productos/{item}", limit(orderHandler.EditItem))
	mux.Handle("DELETE /pedidos/{id}/productos/{item}", limit(orderHandler.DeleteItem))

	mux.Handle("GET /deseados", limit(orderHandler.ListDeseados))
	mux.Handle("POST /deseados", limit(orderHandler.AddDeseado))
	mux.Handle("DELETE /deseados/{id}", limit(orderHandler.RemoveDeseado))

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.WithField("addr", cfg.HTTPAddr).Info("🚀 API corriendo")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logg.Errorf("Error starting server: %v", err)
		return
	case <-quit:
		logg.Info("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logg.Errorf("Error during server shutdown: %v", err)
	}

	logg.Info("Server exited")
}
