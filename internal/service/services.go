package service

import (
	"github.com/MKhiriev/go-offsync/internal/adapter"
	"github.com/MKhiriev/go-offsync/internal/config"
	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/internal/resolver"
	"github.com/MKhiriev/go-offsync/internal/store"
)

type Services struct {
	Entries   EntryService
	Conflicts ConflictService
	Sync      SyncManager
	SyncJob   SyncJob
	Watchdog  *QueueWatchdog
}

func NewServices(storages *store.Storages, remote adapter.RemoteClient, monitor Connectivity, cfg *config.StructuredConfig, log *logger.Logger) *Services {
	policy := resolver.NewPolicy(cfg.Resolver)
	syncMgr := NewSyncManager(storages, remote, monitor, policy, cfg.Sync, log)

	return &Services{
		Entries:   NewEntryService(storages, cfg.Sync),
		Conflicts: NewConflictService(storages, cfg.Sync, log),
		Sync:      syncMgr,
		SyncJob:   NewSyncJob(syncMgr, monitor, log),
		Watchdog:  NewQueueWatchdog(storages.Queue, cfg.Sync, log),
	}
}
