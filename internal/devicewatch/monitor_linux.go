package devicewatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"whittle/internal/logging"
	"whittle/internal/notifications"
)

// Monitor listens for udev netlink events and announces newly attached block
// devices so an examiner knows there is evidence worth spooling. It never
// touches the devices itself.
type Monitor struct {
	logger   *slog.Logger
	notifier notifications.Service

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewMonitor creates a block-device attach monitor.
func NewMonitor(notifier notifications.Service, logger *slog.Logger) *Monitor {
	return &Monitor{
		logger:   logging.NewComponentLogger(logger, "devicewatch"),
		notifier: notifier,
	}
}

// Start begins listening for udev netlink events. A connect failure is
// non-fatal: the rest of the system works without attach announcements.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("netlink connect failed; device announcements unavailable",
			logging.Error(err))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("device monitor started")
	return nil
}

// Stop shuts down the monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Info("device monitor stopped")
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, blockDeviceMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

// blockDeviceMatcher matches whole-disk add events: SUBSYSTEM=block,
// DEVTYPE=disk, ACTION=add. Partitions are skipped; announcing the disk once
// is enough.
func blockDeviceMatcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"DEVTYPE":   "disk",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := deviceName(uevent)
	if devname == "" {
		return
	}

	m.logger.Info("block device attached",
		logging.String("device", devname),
		logging.String("action", string(uevent.Action)))

	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventDeviceAttached, notifications.Payload{
		"device": devname,
	}); err != nil {
		m.logger.Warn("device notification failed", logging.Error(err))
	}
}

func deviceName(uevent netlink.UEvent) string {
	if name := strings.TrimSpace(uevent.Env["DEVNAME"]); name != "" {
		if !strings.HasPrefix(name, "/dev/") {
			name = "/dev/" + name
		}
		return name
	}
	return ""
}
