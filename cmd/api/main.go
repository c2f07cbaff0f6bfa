package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"gatehouse.io/internal/app"
	"gatehouse.io/internal/config"
	"gatehouse.io/internal/httpapi"
	"gatehouse.io/internal/obs"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().WithError(err).Fatal("load config")
	}
	obs.ConfigureLogger(cfg.Log.Level, cfg.Log.Format, nil)
	obs.Init()
	build := obs.InitBuildInfo(version, commit)
	log := obs.Logger()

	ctx := context.Background()
	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("init services")
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		log.WithError(err).Fatal("migrate")
	}
	if _, err := a.Bootstrap(ctx); err != nil {
		log.WithError(err).Fatal("bootstrap")
	}

	ready := httpapi.ReadyProbe{DB: a.Store.DB()}
	api, err := httpapi.New(httpapi.Options{
		Version: version,
		Ready:   ready,
		Auth:    a.Auth,
		RBAC:    a.RBAC,
		Captcha: a.Captcha,
		Limits: httpapi.Limits{
			PublicWindow:     cfg.Limits.PublicWindow,
			PublicMax:        cfg.Limits.PublicMax,
			SubmissionWindow: cfg.Limits.SubmissionWindow,
			SubmissionMax:    cfg.Limits.SubmissionMax,
			LoginBurst:       cfg.Limits.LoginBurst,
			LoginPerSecond:   cfg.Limits.LoginPerSecond,
		},
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	})
	if err != nil {
		log.WithError(err).Fatal("init http api")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var (
		grpcSrv  *grpc.Server
		grpcWrap *httpapi.GRPCServer
	)
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.WithError(err).Fatal("grpc listen")
		}
		grpcWrap = httpapi.NewGRPCServer(ready, a.Auth)
		grpcSrv = grpcWrap.NewServer()
		go func() {
			log.WithField("addr", cfg.GRPCAddr).Info("grpc listening")
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.WithError(err).Fatal("grpc serve")
			}
		}()
	}

	go func() {
		log.WithField("addr", srv.Addr).WithField("version", build.Version).WithField("commit", build.Commit).WithField("env", cfg.Env).Info("starting gatehouse")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcSrv != nil {
		grpcWrap.Shutdown()
		grpcSrv.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	log.Info("stopped")
}
