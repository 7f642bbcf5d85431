package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/ministry-shop/internal/app/handlers"
	"github.com/linemk/ministry-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/ministry-shop/internal/lib/logger/handlers/urllog"
	"github.com/linemk/ministry-shop/internal/service"
	"github.com/linemk/ministry-shop/internal/storage"
)

// Router собирает репозитории, сервисы и маршруты API
func (a *App) Router() http.Handler {
	log := a.Logger

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(a.DB)
	productRepo := storage.NewProductRepository(a.DB)
	postRepo := storage.NewPostRepository(a.DB)
	cartRepo := storage.NewCartRepository(a.DB)
	orderRepo := storage.NewOrderRepository(a.DB)

	authService := service.NewAuthService(log, userRepo, time.Duration(a.Config.JWT.TokenTTL)*time.Minute, a.Config.JWT.Secret)
	catalogService := service.NewCatalogService(log, productRepo, postRepo, a.Catalog)
	cartService := service.NewCartService(log, cartRepo, productRepo)
	checkoutService := service.NewCheckoutService(log, a.DB, userRepo, orderRepo, cartRepo, a.Config.Checkout)
	orderService := service.NewOrderService(log, orderRepo)

	// регистрация и вход
	router.Post("/api/auth/signup", handlers.SignUpHandler(log, authService))
	router.Post("/api/auth/signin", handlers.SignInHandler(log, authService))

	// витрина доступна без токена
	router.Get("/api/products", handlers.ProductsHandler(log, catalogService))
	router.Get("/api/products/{id}", handlers.ProductHandler(log, catalogService))
	router.Get("/api/posts", handlers.PostsHandler(log, catalogService))

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware(a.Config.JWT.Secret))

		r.Get("/api/cart", handlers.CartHandler(log, cartService))
		r.Post("/api/cart", handlers.AddToCartHandler(log, cartService))
		r.Delete("/api/cart/{id}", handlers.RemoveFromCartHandler(log, cartService))

		// GET - предпросмотр и вопрос подтверждения, POST - оформление
		r.Get("/api/checkout", handlers.CheckoutPreviewHandler(log, cartService, checkoutService))
		r.Post("/api/checkout", handlers.CheckoutHandler(log, cartService, checkoutService))

		r.Get("/api/orders", handlers.OrdersHandler(log, orderService))
	})

	return router
}
