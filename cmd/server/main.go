package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"

	"github.com/smartclass-id/classroom_core_v1/internal/attendance"
	"github.com/smartclass-id/classroom_core_v1/internal/bridge"
	"github.com/smartclass-id/classroom_core_v1/internal/clock"
	"github.com/smartclass-id/classroom_core_v1/internal/config"
	"github.com/smartclass-id/classroom_core_v1/internal/database"
	"github.com/smartclass-id/classroom_core_v1/internal/ingest"
	"github.com/smartclass-id/classroom_core_v1/internal/presence"
	"github.com/smartclass-id/classroom_core_v1/internal/registry"
	"github.com/smartclass-id/classroom_core_v1/internal/routes"
	"github.com/smartclass-id/classroom_core_v1/internal/session"
	"github.com/smartclass-id/classroom_core_v1/internal/ws"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	if err := database.SeedAdmin(db, cfg); err != nil {
		log.Fatalf("admin seed failed: %v", err)
	}

	if err := database.SeedDeviceInventory(db); err != nil {
		log.Fatalf("device inventory seed failed: %v", err)
	}

	if err := database.SeedStudents(db); err != nil {
		log.Fatalf("student seed failed: %v", err)
	}

	clk := clock.New()
	kv := database.NewKVStore(db)

	reg, err := registry.New(database.NewInventory(db), kv, clk)
	if err != nil {
		log.Fatalf("device registry init failed: %v", err)
	}

	tracker := presence.NewTracker(clk)
	tracker.SetStalenessTimeout(cfg.StalenessTimeout())

	roster, err := database.Roster(db)
	if err != nil {
		log.Fatalf("roster load failed: %v", err)
	}
	att, err := attendance.NewTracker(clk, kv, roster)
	if err != nil {
		log.Fatalf("attendance tracker init failed: %v", err)
	}

	br := bridge.New()
	sessions := session.NewManager(clk, br)

	hub := ws.NewDashboardHub()
	go hub.Run()

	ing := ingest.New(br, reg, tracker, sessions, hub)
	ing.Start()

	// The broker may come up after us; the operator can retry from the
	// dashboard, so a failed dial is not fatal.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := br.Connect(ctx, cfg.BrokerURL); err != nil {
		log.Printf("broker connect failed (continuing offline): %v", err)
	}
	cancel()

	r := gin.Default()
	routes.Register(r, routes.Deps{
		DB:         db,
		Cfg:        cfg,
		Bridge:     br,
		Registry:   reg,
		Presence:   tracker,
		Sessions:   sessions,
		Attendance: att,
		Ingest:     ing,
		Hub:        hub,
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Println("server exited with error:", err)
		os.Exit(1)
	}
}
