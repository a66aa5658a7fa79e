package tagscan

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const scannedBufferSize = 64

type TagSource interface {
	Scan(ctx context.Context, filePath string) ([]Tag, error)
}

// Manager scans queued files in FIFO order on a background worker and
// caches the tags per file.  Files are scanned at most once.
type Manager struct {
	log    *logrus.Entry
	source TagSource

	ctx    context.Context
	cancel func()
	group  *errgroup.Group

	mutex sync.Mutex
	cond  *sync.Cond // signaled on queue / busy / quit changes
	queue []string
	busy  bool
	quit  bool
	db    map[string][]Tag

	scanned chan string
}

func NewManager(source TagSource, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	manager := &Manager{
		log:     logger.WithField("layer", "tagscan"),
		source:  source,
		ctx:     ctx,
		cancel:  cancel,
		group:   group,
		db:      map[string][]Tag{},
		scanned: make(chan string, scannedBufferSize),
	}
	manager.cond = sync.NewCond(&manager.mutex)

	group.Go(manager.work)
	return manager
}

func (manager *Manager) work() error {
	for {
		manager.mutex.Lock()
		for !manager.quit && len(manager.queue) == 0 {
			manager.cond.Wait()
		}

		if manager.quit {
			manager.mutex.Unlock()
			return nil
		}

		filePath := manager.queue[0]
		manager.queue = manager.queue[1:]
		manager.busy = true
		manager.mutex.Unlock()

		tags, err := manager.source.Scan(manager.ctx, filePath)
		if err != nil {
			manager.log.Warnf("tag scan failed: %s", err)
		}

		manager.mutex.Lock()
		manager.db[filePath] = tags
		manager.busy = false
		manager.cond.Broadcast()
		manager.mutex.Unlock()

		select {
		case manager.scanned <- filePath:
		default:
			manager.log.Debugf("dropped scan notification for %s", filePath)
		}
	}
}

// QueueScan schedules filePath unless it is already indexed or queued.
func (manager *Manager) QueueScan(filePath string) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.quit {
		return
	}

	_, ok := manager.db[filePath]
	if ok {
		return
	}

	for _, queued := range manager.queue {
		if queued == filePath {
			return
		}
	}

	manager.queue = append(manager.queue, filePath)
	manager.cond.Broadcast()
}

// Tags returns the cached tags of an indexed file.
func (manager *Manager) Tags(filePath string) ([]Tag, bool) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	tags, ok := manager.db[filePath]
	return tags, ok
}

// Scan returns the cached tags, or scans filePath synchronously without
// caching the result.
func (manager *Manager) Scan(ctx context.Context, filePath string) ([]Tag, error) {
	tags, ok := manager.Tags(filePath)
	if ok {
		return tags, nil
	}

	return manager.source.Scan(ctx, filePath)
}

// Scanned receives the path of each completed scan.  Notifications are
// dropped when the receiver falls behind.
func (manager *Manager) Scanned() <-chan string {
	return manager.scanned
}

// Abort drops all pending (not yet started) scans.
func (manager *Manager) Abort() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	manager.queue = nil
	manager.cond.Broadcast()
}

// WaitAll blocks until the queue is empty and the worker is idle.
func (manager *Manager) WaitAll() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for len(manager.queue) > 0 || manager.busy {
		manager.cond.Wait()
	}
}

func (manager *Manager) Close() error {
	manager.mutex.Lock()
	manager.quit = true
	manager.queue = nil
	manager.cond.Broadcast()
	manager.mutex.Unlock()

	manager.cancel()
	return manager.group.Wait()
}
