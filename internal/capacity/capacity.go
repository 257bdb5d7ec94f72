// Package capacity reads system stats (disk, memory, CPU) and applies the
// configured fail-or-warn policy per numeric check. A background monitor
// re-evaluates periodically so long operations can be cancelled when a
// threshold is crossed mid-flight.
package capacity

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
)

// Policy selects what a crossed threshold does: fail the request or only
// log a warning.
type Policy string

const (
	PolicyFail Policy = "fail"
	PolicyWarn Policy = "warn"
)

// Thresholds holds the configured limits; a zero value disables the
// corresponding check.
type Thresholds struct {
	MinFreeDiskBytes uint64
	MaxMemoryPercent float64
	MaxCPUPercent    float64

	DiskPolicy   Policy
	MemoryPolicy Policy
	CPUPolicy    Policy
}

// Stats abstracts the system-stats facility so tests can substitute fixed
// readings for the gopsutil-backed default.
type Stats interface {
	FreeDiskBytes(ctx context.Context, path string) (uint64, error)
	MemoryUsedPercent(ctx context.Context) (float64, error)
	CPUPercent(ctx context.Context) (float64, error)
}

// SystemStats reads live values through gopsutil.
type SystemStats struct{}

func (SystemStats) FreeDiskBytes(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

func (SystemStats) MemoryUsedPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

func (SystemStats) CPUPercent(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

// Checker evaluates the configured thresholds. DataPath is the mount the
// disk check watches (the local storage root, or the temp dir used while
// streaming to S3).
type Checker struct {
	Stats      Stats
	Thresholds Thresholds
	DataPath   string
	Log        *zap.SugaredLogger

	breached atomic.Bool
}

func NewChecker(stats Stats, t Thresholds, dataPath string, log *zap.SugaredLogger) *Checker {
	if stats == nil {
		stats = SystemStats{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Checker{Stats: stats, Thresholds: t, DataPath: dataPath, Log: log}
}

// Breached reports whether the last background sweep saw a crossed
// fail-policy threshold, letting in-flight operations bail out early.
func (c *Checker) Breached() bool {
	return c.breached.Load()
}

// CheckDisk verifies requiredBytes fit under the configured floor. With
// PolicyWarn a shortfall only logs; with PolicyFail it returns the typed
// error the upload pipeline surfaces as 507.
func (c *Checker) CheckDisk(ctx context.Context, requiredBytes uint64) error {
	if c.Thresholds.MinFreeDiskBytes == 0 {
		return nil
	}
	free, err := c.Stats.FreeDiskBytes(ctx, c.DataPath)
	if err != nil {
		c.Log.Warnf("capacity: read disk stats failed: %v", err)
		return nil
	}
	if free >= c.Thresholds.MinFreeDiskBytes+requiredBytes {
		return nil
	}
	if c.Thresholds.DiskPolicy == PolicyWarn {
		c.Log.Warnf("capacity: low disk space, %d bytes free, %d required", free, requiredBytes)
		return nil
	}
	return mdlerr.WithExtra(mdlerr.KindInsufficientDiskSpace, "insufficient disk space",
		map[string]any{"available": free, "required": requiredBytes})
}

// CheckMemory applies the memory-percent ceiling.
func (c *Checker) CheckMemory(ctx context.Context) error {
	if c.Thresholds.MaxMemoryPercent == 0 {
		return nil
	}
	used, err := c.Stats.MemoryUsedPercent(ctx)
	if err != nil {
		c.Log.Warnf("capacity: read memory stats failed: %v", err)
		return nil
	}
	if used <= c.Thresholds.MaxMemoryPercent {
		return nil
	}
	if c.Thresholds.MemoryPolicy == PolicyWarn {
		c.Log.Warnf("capacity: memory usage %.1f%% over threshold %.1f%%", used, c.Thresholds.MaxMemoryPercent)
		return nil
	}
	return mdlerr.WithExtra(mdlerr.KindHighMemoryUsage, "memory usage too high",
		map[string]any{"usage": used, "threshold": c.Thresholds.MaxMemoryPercent})
}

// CheckCPU applies the CPU-percent ceiling.
func (c *Checker) CheckCPU(ctx context.Context) error {
	if c.Thresholds.MaxCPUPercent == 0 {
		return nil
	}
	used, err := c.Stats.CPUPercent(ctx)
	if err != nil {
		c.Log.Warnf("capacity: read cpu stats failed: %v", err)
		return nil
	}
	if used <= c.Thresholds.MaxCPUPercent {
		return nil
	}
	if c.Thresholds.CPUPolicy == PolicyWarn {
		c.Log.Warnf("capacity: cpu usage %.1f%% over threshold %.1f%%", used, c.Thresholds.MaxCPUPercent)
		return nil
	}
	return mdlerr.WithExtra(mdlerr.KindHighCPUUsage, "cpu usage too high",
		map[string]any{"usage": used, "threshold": c.Thresholds.MaxCPUPercent})
}

// CheckAll runs every enabled check, returning the first fail-policy error.
func (c *Checker) CheckAll(ctx context.Context, requiredDiskBytes uint64) error {
	if err := c.CheckDisk(ctx, requiredDiskBytes); err != nil {
		return err
	}
	if err := c.CheckMemory(ctx); err != nil {
		return err
	}
	return c.CheckCPU(ctx)
}

// Run is the background monitor: it re-evaluates the thresholds on a
// ticker and flips Breached so long-running operations can observe a
// crossing that happened after they started.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.CheckAll(ctx, 0)
			c.breached.Store(err != nil)
		}
	}
}
