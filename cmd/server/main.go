// cmd/server/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Corphon/NovelBuilder/internal/app"
	"github.com/Corphon/NovelBuilder/internal/config"
	"github.com/Corphon/NovelBuilder/internal/utils"
)

func main() {
	log.Println("🚀 Starting NovelBuilder server...")

	// 1. load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. logger
	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "server.log"), cfg.DebugMode); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	logger := utils.GetLogger()
	if !cfg.DebugMode {
		logger.SetLogLevel(utils.ParseLogLevel(cfg.LogLevel))
	}
	defer logger.Sync()

	logger.Info("configuration loaded", map[string]interface{}{
		"port":    cfg.Port,
		"storage": cfg.Storage,
		"debug":   cfg.DebugMode,
	})

	// 3. services and router
	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("initialize application failed", map[string]interface{}{"error": err.Error()})
	}
	defer application.Close()

	// 4. serve until interrupted, then shut down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("server exited with error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("✅ server shut down cleanly", nil)
}
