package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"attendly/cmd/middleware"
	"attendly/internal/auth"
	"attendly/internal/service"
)

type Routers struct {
	Service   service.Service
	JWTSecret string
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())

	apiGroup := app.Group("/v1")

	// Public surface: account creation, login, and the registration form
	// projection reached from a scanned event QR.
	apiGroup.POST("/admin/register", r.Service.RegisterAdmin)
	apiGroup.POST("/admin/login", r.Service.LoginAdmin)
	apiGroup.POST("/users/register", r.Service.RegisterUser)
	apiGroup.POST("/users/login", r.Service.LoginUser)
	apiGroup.GET("/events/code/:eventCode", r.Service.GetEventByCode)

	// Admin surface.
	adminGroup := apiGroup.Group("")
	adminGroup.Use(auth.Middleware(r.JWTSecret), auth.RequireAdmin())

	adminGroup.GET("/admin/me", r.Service.GetAdminProfile)
	adminGroup.GET("/admins", r.Service.ListAdmins)

	adminGroup.POST("/events", r.Service.CreateEvent)
	adminGroup.GET("/events", r.Service.ListEvents)
	adminGroup.GET("/events/:id", r.Service.GetEvent)
	adminGroup.PUT("/events/:id", r.Service.UpdateEvent)
	adminGroup.DELETE("/events/:id", r.Service.DeleteEvent)
	adminGroup.POST("/events/:id/qr/regenerate", r.Service.RegenerateQR)
	adminGroup.POST("/events/:id/remind", r.Service.RemindUnattended)

	adminGroup.POST("/users/import", r.Service.ImportRegistrations)

	adminGroup.POST("/attendance/scan", r.Service.Scan)
	adminGroup.GET("/attendance", r.Service.ListAttendance)

	adminGroup.GET("/notifications", r.Service.ListNotifications)
	adminGroup.POST("/notifications/:id/resend", r.Service.ResendNotification)

	return app
}
