// Package sysinfo provides the system_info tool, a read-only snapshot of
// the host: OS, CPU, memory, disk and load.
package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/Cyclone1070/sysmate/internal/tool"
	"github.com/Cyclone1070/sysmate/internal/tool/adapter"
)

// ServerID identifies the system tool server.
const ServerID = "system"

// Section names accepted by system_info.
const (
	SectionHost   = "host"
	SectionCPU    = "cpu"
	SectionMemory = "memory"
	SectionDisk   = "disk"
	SectionLoad   = "load"
)

var allSections = []string{SectionHost, SectionCPU, SectionMemory, SectionDisk, SectionLoad}

var ErrUnknownSection = errors.New("unknown section")

// InfoRequest is the argument set of system_info.
type InfoRequest struct {
	// Sections limits the report. Empty means all sections.
	Sections []string `json:"sections,omitempty"`
	// Path selects the filesystem for the disk section. Default "/".
	Path string `json:"path,omitempty"`
}

func (r *InfoRequest) Validate() error {
	for _, s := range r.Sections {
		if !valid(s) {
			return fmt.Errorf("%w: %q", ErrUnknownSection, s)
		}
	}
	if r.Path == "" {
		r.Path = "/"
	}
	return nil
}

func valid(section string) bool {
	for _, s := range allSections {
		if s == section {
			return true
		}
	}
	return false
}

// Source provides the raw measurements.
type Source interface {
	Host(ctx context.Context) (*host.InfoStat, error)
	CPU(ctx context.Context) (model string, cores int, err error)
	Memory(ctx context.Context) (*mem.VirtualMemoryStat, error)
	Disk(ctx context.Context, path string) (*disk.UsageStat, error)
	Load(ctx context.Context) (*load.AvgStat, error)
}

// gopsutilSource reads the live system.
type gopsutilSource struct{}

func (gopsutilSource) Host(ctx context.Context) (*host.InfoStat, error) {
	return host.InfoWithContext(ctx)
}

func (gopsutilSource) CPU(ctx context.Context) (string, int, error) {
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return "", 0, err
	}
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil || len(infos) == 0 {
		// Model names are missing in some containers; the count is enough.
		return runtime.GOARCH, cores, nil
	}
	return infos[0].ModelName, cores, nil
}

func (gopsutilSource) Memory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

func (gopsutilSource) Disk(ctx context.Context, path string) (*disk.UsageStat, error) {
	return disk.UsageWithContext(ctx, path)
}

func (gopsutilSource) Load(ctx context.Context) (*load.AvgStat, error) {
	return load.AvgWithContext(ctx)
}

// Tool implements system_info.
type Tool struct {
	source Source
}

// New creates the tool reading the live system.
func New() *Tool {
	return &Tool{source: gopsutilSource{}}
}

// NewWithSource creates the tool over a custom source.
func NewWithSource(src Source) *Tool {
	return &Tool{source: src}
}

// Info renders the requested sections. A section whose measurement fails
// is reported as unavailable; the call only fails if ctx is done.
func (t *Tool) Info(ctx context.Context, req InfoRequest) (string, error) {
	sections := req.Sections
	if len(sections) == 0 {
		sections = allSections
	}
	path := req.Path
	if path == "" {
		path = "/"
	}

	var b strings.Builder
	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := t.section(ctx, s, path)
		if err != nil {
			line = fmt.Sprintf("unavailable (%v)", err)
		}
		fmt.Fprintf(&b, "%-7s %s\n", s+":", line)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (t *Tool) section(ctx context.Context, name, path string) (string, error) {
	switch name {
	case SectionHost:
		h, err := t.source.Host(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s, %s %s (kernel %s %s), up %s",
			h.Hostname, h.Platform, h.PlatformVersion, h.KernelVersion, h.KernelArch,
			time.Duration(h.Uptime)*time.Second), nil
	case SectionCPU:
		model, cores, err := t.source.CPU(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s, %d logical cores", model, cores), nil
	case SectionMemory:
		m, err := t.source.Memory(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s used of %s (%.1f%%), %s available",
			formatBytes(m.Used), formatBytes(m.Total), m.UsedPercent, formatBytes(m.Available)), nil
	case SectionDisk:
		d, err := t.source.Disk(ctx, path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s used of %s (%.1f%%), %s free",
			d.Path, formatBytes(d.Used), formatBytes(d.Total), d.UsedPercent, formatBytes(d.Free)), nil
	case SectionLoad:
		l, err := t.source.Load(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%.2f %.2f %.2f (1, 5, 15 min)", l.Load1, l.Load5, l.Load15), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, name)
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Server returns the tool server exposing system_info.
func (t *Tool) Server() (*adapter.LocalServer, error) {
	return adapter.NewLocalServer(ServerID,
		adapter.New(tool.Spec{
			Name:        "system_info",
			Description: "Report host, CPU, memory, disk and load information for this machine.",
			Parameters: tool.Object(map[string]*tool.Schema{
				"sections": {
					Type:        tool.TypeArray,
					Description: "Sections to include; all if omitted",
					Items:       &tool.Schema{Type: tool.TypeString, Enum: allSections},
				},
				"path": {Type: tool.TypeString, Description: "Filesystem path for the disk section (default /)"},
			}),
			Capability: tool.CapabilityInformational,
			Keywords: []string{
				"system", "memory", "ram", "cpu", "disk", "space", "uptime",
				"load", "kernel", "os", "hostname", "hardware",
			},
		}, t.Info),
	)
}
