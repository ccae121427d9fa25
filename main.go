package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"homeglow/internal/cache"
	"homeglow/internal/config"
	"homeglow/internal/db"
	"homeglow/internal/emulator"
	"homeglow/internal/emulator/actuator"
	"homeglow/internal/emulator/autoeval"
	"homeglow/internal/emulator/autosched"
	"homeglow/internal/emulator/dispatch"
	"homeglow/internal/emulator/telemetry"
	"homeglow/internal/emulator/valuegen"
	"homeglow/internal/eventbus"
	"homeglow/internal/logging"
	"homeglow/internal/mqtt"
	"homeglow/internal/taskqueue"
	"homeglow/internal/web"
	"homeglow/internal/web/api"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	loc, err := time.LoadLocation(cfg.EmulatorTimezone)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", zap.String("tz", cfg.EmulatorTimezone))
		loc = time.UTC
	}

	database, err := db.NewDB(cfg.DBURL)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer database.Close(context.Background())

	redisClient := cache.NewClient(cfg.RedisAddr)
	defer redisClient.Close()
	stateCache := cache.New(redisClient)

	mqttClient, err := mqtt.NewMQTTClient(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		logger.Fatal("connect mqtt broker", zap.Error(err))
	}
	defer mqttClient.Disconnect(250)

	bus := eventbus.NewMemory(logger)
	bridge := eventbus.NewMQTTBridge(mqttClient, bus, logger)
	bus.AttachForwarder(bridge)

	gen := valuegen.NewSeeded()
	tele := telemetry.NewScheduler(database, stateCache, bus, gen, logger.Named("telemetry"))
	act := actuator.New(database, stateCache, bus, gen, logger.Named("actuator"))
	disp := dispatch.New(database, act, bus, logger.Named("dispatch"))
	sched := autosched.New(database, disp, loc, logger.Named("autosched"))
	eval := autoeval.New(database, disp, logger.Named("autoeval"))
	eval.Attach(bus)

	svc := emulator.New(database, stateCache, bus, gen, tele, sched, act, logger, emulator.Options{
		Interval: time.Duration(cfg.EmulatorIntervalMs) * time.Millisecond,
		Location: loc,
	})
	svc.Run()

	if err := bridge.Run(); err != nil {
		logger.Fatal("subscribe mqtt control topics", zap.Error(err))
	}

	taskqueue.Setup(cfg.RedisAddr, svc, logger.Named("taskqueue"))
	if err := taskqueue.StartWorkers(); err != nil {
		logger.Fatal("start task queue", zap.Error(err))
	}

	if cfg.EmulatorAutostart {
		if err := svc.StartAll(context.Background()); err != nil {
			logger.Fatal("start emulation", zap.Error(err))
		}
	}

	handler := api.NewEmulatorHandler(svc, logger.Named("web"))
	router := web.NewRouter(handler, cfg.JWTSecret, logger.Named("web"))
	server := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	svc.StopAll()
	taskqueue.StopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
