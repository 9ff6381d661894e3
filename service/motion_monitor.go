package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/nebula-fhevm/log"
	"github.com/vocdoni/nebula-fhevm/storage"
	"github.com/vocdoni/nebula-fhevm/types"
)

// MotionMonitor represents a service that watches the hub for new motions
// and keeps a copy of them in the storage.
type MotionMonitor struct {
	contracts ContractsService
	storage   *storage.Storage
	interval  time.Duration
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMotionMonitor creates a new MotionMonitor service.
func NewMotionMonitor(contracts ContractsService, stg *storage.Storage, interval time.Duration) *MotionMonitor {
	return &MotionMonitor{
		contracts: contracts,
		storage:   stg,
		interval:  interval,
	}
}

// Start begins monitoring for new motions. It returns an error if the service
// is already running or if it fails to start monitoring.
func (mm *MotionMonitor) Start(ctx context.Context) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.storage == nil {
		return fmt.Errorf("missing storage instance")
	}
	if mm.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	mm.cancel = cancel

	newMotionChan, err := mm.contracts.MonitorMotionCreation(ctx, mm.interval)
	if err != nil {
		mm.cancel = nil
		cancel()
		return fmt.Errorf("failed to start motion monitoring: %w", err)
	}

	mm.done = make(chan struct{})
	go mm.monitorMotions(ctx, newMotionChan)
	return nil
}

// Stop halts the monitoring service and waits for it to return.
func (mm *MotionMonitor) Stop() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.cancel != nil {
		mm.cancel()
		mm.cancel = nil
		<-mm.done
	}
}

func (mm *MotionMonitor) monitorMotions(ctx context.Context, newMotionChan <-chan *types.Motion) {
	defer close(mm.done)
	for {
		select {
		case <-ctx.Done():
			return
		case motion, ok := <-newMotionChan:
			if !ok {
				return
			}
			if _, err := mm.storage.Motion(motion.ID); err == nil {
				log.Warnw("motion already exists", "motionId", motion.ID)
				continue
			} else if !errors.Is(err, storage.ErrNotFound) {
				log.Warnw("failed to read motion", "motionId", motion.ID, "error", err.Error())
				continue
			}
			log.Debugw("new motion found", "motionId", motion.ID, "title", motion.Title)
			if err := mm.storage.SetMotion(motion); err != nil {
				log.Warnw("failed to store motion", "motionId", motion.ID, "error", err.Error())
			}
		}
	}
}
