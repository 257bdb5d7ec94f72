package capacity

import (
	"context"
	"testing"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
)

type fixedStats struct {
	free   uint64
	memPct float64
	cpuPct float64
}

func (s fixedStats) FreeDiskBytes(ctx context.Context, path string) (uint64, error) {
	return s.free, nil
}
func (s fixedStats) MemoryUsedPercent(ctx context.Context) (float64, error) { return s.memPct, nil }
func (s fixedStats) CPUPercent(ctx context.Context) (float64, error)        { return s.cpuPct, nil }

func TestCheckDiskFailPolicy(t *testing.T) {
	c := NewChecker(fixedStats{free: 1000}, Thresholds{
		MinFreeDiskBytes: 2000,
		DiskPolicy:       PolicyFail,
	}, "/data", nil)

	err := c.CheckDisk(context.Background(), 500)
	if !mdlerr.Is(err, mdlerr.KindInsufficientDiskSpace) {
		t.Fatalf("CheckDisk() error = %v, want KindInsufficientDiskSpace", err)
	}
	mdErr, _ := mdlerr.As(err)
	if mdErr.Extra["available"] != uint64(1000) {
		t.Fatalf("Extra[available] = %v, want 1000", mdErr.Extra["available"])
	}
}

func TestCheckDiskWarnPolicyPasses(t *testing.T) {
	c := NewChecker(fixedStats{free: 1000}, Thresholds{
		MinFreeDiskBytes: 2000,
		DiskPolicy:       PolicyWarn,
	}, "/data", nil)

	if err := c.CheckDisk(context.Background(), 500); err != nil {
		t.Fatalf("CheckDisk() with warn policy error = %v, want nil", err)
	}
}

func TestCheckDiskDisabledWhenNoThreshold(t *testing.T) {
	c := NewChecker(fixedStats{free: 0}, Thresholds{}, "/data", nil)
	if err := c.CheckDisk(context.Background(), 1<<40); err != nil {
		t.Fatalf("CheckDisk() with no threshold error = %v, want nil", err)
	}
}

func TestCheckMemoryAndCPUFail(t *testing.T) {
	c := NewChecker(fixedStats{memPct: 95, cpuPct: 99}, Thresholds{
		MaxMemoryPercent: 90,
		MemoryPolicy:     PolicyFail,
		MaxCPUPercent:    80,
		CPUPolicy:        PolicyFail,
	}, "/data", nil)

	if err := c.CheckMemory(context.Background()); !mdlerr.Is(err, mdlerr.KindHighMemoryUsage) {
		t.Fatalf("CheckMemory() error = %v, want KindHighMemoryUsage", err)
	}
	if err := c.CheckCPU(context.Background()); !mdlerr.Is(err, mdlerr.KindHighCPUUsage) {
		t.Fatalf("CheckCPU() error = %v, want KindHighCPUUsage", err)
	}
}

func TestCheckAllStopsAtFirstFailure(t *testing.T) {
	c := NewChecker(fixedStats{free: 0, memPct: 95}, Thresholds{
		MinFreeDiskBytes: 1,
		DiskPolicy:       PolicyFail,
		MaxMemoryPercent: 90,
		MemoryPolicy:     PolicyFail,
	}, "/data", nil)

	err := c.CheckAll(context.Background(), 0)
	if !mdlerr.Is(err, mdlerr.KindInsufficientDiskSpace) {
		t.Fatalf("CheckAll() error = %v, want the disk failure first", err)
	}
}
