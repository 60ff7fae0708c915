package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/smartclass-id/classroom_core_v1/internal/attendance"
	"github.com/smartclass-id/classroom_core_v1/internal/bridge"
	"github.com/smartclass-id/classroom_core_v1/internal/config"
	"github.com/smartclass-id/classroom_core_v1/internal/controllers"
	"github.com/smartclass-id/classroom_core_v1/internal/ingest"
	"github.com/smartclass-id/classroom_core_v1/internal/middleware"
	"github.com/smartclass-id/classroom_core_v1/internal/presence"
	"github.com/smartclass-id/classroom_core_v1/internal/registry"
	"github.com/smartclass-id/classroom_core_v1/internal/session"
	"github.com/smartclass-id/classroom_core_v1/internal/ws"
)

// Deps bundles the coordination components the HTTP surface exposes.
type Deps struct {
	DB         *gorm.DB
	Cfg        *config.Config
	Bridge     *bridge.Bridge
	Registry   *registry.Registry
	Presence   *presence.Tracker
	Sessions   *session.Manager
	Attendance *attendance.Tracker
	Ingest     *ingest.Ingest
	Hub        *ws.DashboardHub
}

func Register(r *gin.Engine, d Deps) {
	expiresMins, err := time.ParseDuration(d.Cfg.JWTExpiresIn + "m")
	if err != nil || expiresMins == 0 {
		expiresMins = 60 * time.Minute
	}
	authCtrl := &controllers.AuthController{DB: d.DB, JWTSecret: d.Cfg.JWTSecret, ExpiresIn: expiresMins}
	deviceCtrl := &controllers.DeviceController{Registry: d.Registry}
	presenceCtrl := &controllers.PresenceController{Tracker: d.Presence}
	sessionCtrl := &controllers.SessionController{Manager: d.Sessions}
	attendanceCtrl := &controllers.AttendanceController{Tracker: d.Attendance, Hub: d.Hub}
	brokerCtrl := &controllers.BrokerController{Bridge: d.Bridge, BrokerURL: d.Cfg.BrokerURL, Ingest: d.Ingest}
	rosterCtrl := &controllers.RosterController{DB: d.DB, Attendance: d.Attendance}

	// Public
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", authCtrl.Login)
	}

	// Protected
	authMW := middleware.AuthMiddleware(d.DB, middleware.AuthConfig{
		JWTSecret:    d.Cfg.JWTSecret,
		JWTExpiresIn: expiresMins,
	})
	api := r.Group("/api/v1", authMW)
	{
		api.GET("/auth/me", authCtrl.Me)

		// Admin-only
		admin := api.Group("/admin", middleware.RequireRoles("admin"))
		{
			admin.POST("/users", authCtrl.Register)

			admin.GET("/students", rosterCtrl.ListStudents)
			admin.POST("/students", rosterCtrl.CreateStudent)
			admin.POST("/students/import", rosterCtrl.ImportStudents)
			admin.DELETE("/students/:nim", rosterCtrl.DeleteStudent)

			admin.GET("/inventory", rosterCtrl.ListDevices)
			admin.POST("/inventory", rosterCtrl.AddDevice)
		}

		// Operator surface (dosen and admin)
		op := api.Group("", middleware.RequireRoles("dosen", "admin"))
		{
			op.POST("/devices/assign", deviceCtrl.Assign)
			op.POST("/devices/reset", deviceCtrl.Reset)
			op.GET("/devices/:code/owner", deviceCtrl.LookupOwner)
			op.GET("/students/:nim/device", deviceCtrl.LookupDevice)

			op.GET("/presence", presenceCtrl.Snapshot)
			op.GET("/presence/:code", presenceCtrl.StatusOf)

			op.POST("/sessions", sessionCtrl.Create)
			op.GET("/sessions/active", sessionCtrl.Get)
			op.POST("/sessions/active/start", sessionCtrl.Start)
			op.POST("/sessions/active/questions/open", sessionCtrl.OpenQuestion)
			op.POST("/sessions/active/questions/close", sessionCtrl.CloseQuestion)
			op.POST("/sessions/active/questions/reveal", sessionCtrl.RevealAnswer)
			op.POST("/sessions/active/questions/next", sessionCtrl.Next)
			op.POST("/sessions/active/questions/prev", sessionCtrl.Prev)
			op.POST("/sessions/active/end", sessionCtrl.End)
			op.GET("/sessions/active/questions/:question_id/distribution", sessionCtrl.Distribution)

			op.POST("/attendance/manual", attendanceCtrl.MarkManual)
			op.GET("/attendance", attendanceCtrl.Snapshot)
			op.GET("/attendance/stats", attendanceCtrl.Stats)
			op.GET("/attendance/:nim", attendanceCtrl.StatusOf)

			op.GET("/broker", brokerCtrl.Status)
			op.POST("/broker/connect", brokerCtrl.Connect)
			op.POST("/broker/disconnect", brokerCtrl.Disconnect)
		}

		// Face-recognition service callback (service account logs in like an
		// operator).
		api.POST("/attendance/recognition", attendanceCtrl.MarkFromRecognition)

		// Live updates for the dashboard
		api.GET("/ws/dashboard", ws.DashboardHandler(d.Hub))
	}
}
