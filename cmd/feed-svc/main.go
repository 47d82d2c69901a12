package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
	"github.com/davidmz/freefeed-server-1/internal/di"
)

func main() {
	log.Println("Starting feed service...")

	app, cleanup, err := di.InitializeApplication()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer cleanup()

	if err := dbmysql.Migrate(app.DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	addr := app.Config.Server.Host + ":" + app.Config.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.API.Router(),
		ReadTimeout:  time.Duration(app.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(app.Config.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Feed service listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down feed service...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Feed service stopped")
}
