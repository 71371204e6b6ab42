package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/flicky/storefront-api/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health   *HealthHandler
	Auth     *AuthHandler
	Product  *ProductHandler
	Address  *AddressHandler
	Cart     *CartHandler
	Order    *OrderHandler
	Shipment *ShipmentHandler
	Events   *EventsHandler
}

func NewRouter(h Handlers, jwtSecret string, verifier middleware.VerificationChecker) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(gin.DefaultWriter), gin.Recovery())

	router.GET("/healthz", h.Health.Healthz)
	router.GET("/readyz", h.Health.Readyz)

	authed := middleware.Auth(jwtSecret)
	admin := middleware.AdminOnly()

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)

		v1.PUT("/users/:id/verify", authed, admin, h.Auth.VerifyUser)

		products := v1.Group("/products")
		products.GET("", h.Product.List)
		products.GET("/:id", h.Product.GetByID)

		adminProducts := products.Group("", authed, admin)
		adminProducts.POST("", h.Product.Create)
		adminProducts.PUT("/:id", h.Product.Update)
		adminProducts.POST("/:id/restock", h.Product.Restock)
		adminProducts.DELETE("/:id", h.Product.Delete)

		addresses := v1.Group("/addresses", authed)
		addresses.GET("", h.Address.List)
		addresses.POST("", h.Address.Create)
		addresses.GET("/:id", h.Address.Get)
		addresses.PUT("/:id", h.Address.Update)
		addresses.DELETE("/:id", h.Address.Delete)

		cart := v1.Group("/cart", authed)
		cart.GET("", h.Cart.GetCart)
		cart.DELETE("", h.Cart.Clear)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:productId", h.Cart.UpdateItem)
		cart.DELETE("/items/:productId", h.Cart.RemoveItem)

		checkout := v1.Group("/checkout", authed)
		checkout.GET("/confirm", h.Cart.Confirm)
		checkout.POST("/shipping", h.Cart.ValidateShipping)

		orders := v1.Group("/orders", authed)
		orders.POST("", middleware.RequireVerifiedEmail(verifier), h.Order.CreateOrder)
		orders.GET("", h.Order.ListOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.GET("/:id/tracking", h.Order.Tracking)
		orders.PATCH("/:id/status", admin, h.Order.ChangeStatus)
		orders.PUT("/:id/deactivate", admin, h.Order.Deactivate)

		shipments := v1.Group("/shipments", authed, admin)
		shipments.GET("", h.Shipment.List)
		shipments.POST("", h.Shipment.Assign)
		shipments.GET("/:id", h.Shipment.Get)
		shipments.PUT("/:id/status", h.Shipment.Advance)
		shipments.DELETE("/:id", h.Shipment.Remove)

		if h.Events != nil {
			v1.GET("/events", middleware.AuthQueryToken(jwtSecret), h.Events.Stream)
		}
	}
	return router
}
