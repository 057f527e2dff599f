// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-offsync/internal/adapter"
	"github.com/MKhiriev/go-offsync/internal/config"
	myHTTP "github.com/MKhiriev/go-offsync/internal/handler/http"
	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/internal/monitor"
	"github.com/MKhiriev/go-offsync/internal/server"
	"github.com/MKhiriev/go-offsync/internal/service"
	"github.com/MKhiriev/go-offsync/internal/store"
	"github.com/MKhiriev/go-offsync/internal/workers"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("offsync-engine")
	cfg, err := config.GetEngineConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}

	remote := adapter.NewHTTPRemoteClient(cfg.Remote, log)
	connMonitor := monitor.NewConnectivityMonitor(cfg.Monitor, remote, log)
	services := service.NewServices(storages, remote, connMonitor, cfg, log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	services.SyncJob.Start(ctx, cfg.Sync.Interval)
	defer services.SyncJob.Stop()

	if cfg.Admin.HTTPAddress != "" {
		adminServer, err := server.NewServer(myHTTP.NewHandler(services, log), cfg.Admin, log)
		if err != nil {
			log.Fatal().Err(err).Msg("error creating admin server")
		}
		go adminServer.RunServer()
	}

	// blocks until a stop signal cancels ctx
	workers.New(connMonitor, services.Watchdog).Run(ctx)

	log.Info().Msg("engine stopped")
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
