package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/internal/mock"
	"github.com/MKhiriev/go-offsync/internal/service"
	"github.com/MKhiriev/go-offsync/models"
)

func TestSyncJob_TickerTriggersSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	manager := mock.NewMockSyncManager(ctrl)
	monitor := mock.NewMockConnectivity(ctrl)

	monitor.EXPECT().Subscribe(gomock.Any()).Return(func() {})

	synced := make(chan struct{}, 1)
	manager.EXPECT().SyncNow(gomock.Any()).
		DoAndReturn(func(context.Context) (models.SyncResult, error) {
			select {
			case synced <- struct{}{}:
			default:
			}
			return models.SyncResult{}, nil
		}).MinTimes(1)

	job := service.NewSyncJob(manager, monitor, logger.Nop())
	job.Start(context.Background(), 10*time.Millisecond)
	defer job.Stop()

	select {
	case <-synced:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker never triggered a sync cycle")
	}
}

func TestSyncJob_SyncsImmediatelyWhenBackOnline(t *testing.T) {
	ctrl := gomock.NewController(t)
	manager := mock.NewMockSyncManager(ctrl)
	monitor := mock.NewMockConnectivity(ctrl)

	var notify func(online bool)
	monitor.EXPECT().Subscribe(gomock.Any()).
		DoAndReturn(func(fn func(online bool)) func() {
			notify = fn
			return func() {}
		})

	synced := make(chan struct{}, 1)
	manager.EXPECT().SyncNow(gomock.Any()).
		DoAndReturn(func(context.Context) (models.SyncResult, error) {
			select {
			case synced <- struct{}{}:
			default:
			}
			return models.SyncResult{}, nil
		}).MinTimes(1)

	job := service.NewSyncJob(manager, monitor, logger.Nop())
	// interval far in the future: only the connectivity wake can fire
	job.Start(context.Background(), time.Hour)
	defer job.Stop()

	require.NotNil(t, notify)
	notify(true)

	select {
	case <-synced:
	case <-time.After(2 * time.Second):
		t.Fatal("regained connectivity never triggered a sync cycle")
	}
}

func TestSyncJob_OfflineTransitionDoesNotWake(t *testing.T) {
	ctrl := gomock.NewController(t)
	manager := mock.NewMockSyncManager(ctrl)
	monitor := mock.NewMockConnectivity(ctrl)

	var notify func(online bool)
	monitor.EXPECT().Subscribe(gomock.Any()).
		DoAndReturn(func(fn func(online bool)) func() {
			notify = fn
			return func() {}
		})
	// SyncNow must never run

	job := service.NewSyncJob(manager, monitor, logger.Nop())
	job.Start(context.Background(), time.Hour)

	require.NotNil(t, notify)
	notify(false)

	time.Sleep(50 * time.Millisecond)
	job.Stop()
}

func TestSyncJob_StopDetachesFromMonitor(t *testing.T) {
	ctrl := gomock.NewController(t)
	manager := mock.NewMockSyncManager(ctrl)
	monitor := mock.NewMockConnectivity(ctrl)

	unsubscribed := false
	monitor.EXPECT().Subscribe(gomock.Any()).
		Return(func() { unsubscribed = true })

	job := service.NewSyncJob(manager, monitor, logger.Nop())
	job.Start(context.Background(), time.Hour)
	job.Stop()

	assert.True(t, unsubscribed)
}

func TestSyncJob_StopWithoutStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	job := service.NewSyncJob(mock.NewMockSyncManager(ctrl), mock.NewMockConnectivity(ctrl), logger.Nop())

	assert.NotPanics(t, job.Stop)
}
