//go:build !linux

package devicewatch

import (
	"context"
	"log/slog"

	"whittle/internal/logging"
	"whittle/internal/notifications"
)

// Monitor is inert off Linux: udev netlink is the only attach source wired
// up, so other platforms run without device announcements.
type Monitor struct {
	logger *slog.Logger
}

// NewMonitor creates a no-op monitor.
func NewMonitor(notifier notifications.Service, logger *slog.Logger) *Monitor {
	return &Monitor{logger: logging.NewComponentLogger(logger, "devicewatch")}
}

// Start logs that device monitoring is unavailable and returns.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.logger.Info("device monitoring unavailable on this platform")
	return nil
}

// Stop is a no-op.
func (m *Monitor) Stop() {}

// Running always reports false.
func (m *Monitor) Running() bool { return false }
