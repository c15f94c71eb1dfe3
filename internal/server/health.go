package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"Nutrimind/internal/utility"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/sync/errgroup"
)

// healthHandler reports store statistics and a host snapshot. The host
// probes run concurrently; a failed probe leaves its section out.
func (s *Server) healthHandler(c echo.Context) error {
	ctx := c.Request().Context()

	resp := map[string]interface{}{
		"status":        "online",
		"store":         s.store.Health(),
		"ai_configured": s.ai != nil && s.ai.Configured(),
		"mind_sockets":  s.hub.Count(),
	}
	runtime := map[string]interface{}{
		"uptime":     time.Since(s.startTime).Round(time.Second).String(),
		"start_time": s.startTime.Format(time.RFC3339),
	}

	g, grpCtx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	g.Go(func() error {
		hInfo, err := host.InfoWithContext(grpCtx)
		if err != nil {
			return fmt.Errorf("host info: %w", err)
		}
		mu.Lock()
		runtime["os"] = hInfo.OS
		runtime["platform"] = hInfo.Platform
		runtime["arch"] = hInfo.KernelArch
		runtime["hostname"] = hInfo.Hostname
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		// Interval 0 compares against the previous call instead of blocking.
		cpuPercent, err := cpu.PercentWithContext(grpCtx, 0, false)
		if err != nil {
			return fmt.Errorf("cpu percent: %w", err)
		}
		cores, _ := cpu.CountsWithContext(grpCtx, true)
		info := map[string]interface{}{"cores": cores}
		if len(cpuPercent) > 0 {
			info["usage_percent"] = fmt.Sprintf("%.2f%%", cpuPercent[0])
		}
		mu.Lock()
		resp["cpu"] = info
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		v, err := mem.VirtualMemoryWithContext(grpCtx)
		if err != nil {
			return fmt.Errorf("virtual memory: %w", err)
		}
		mu.Lock()
		resp["memory"] = map[string]interface{}{
			"total":        humanize.IBytes(v.Total),
			"used":         humanize.IBytes(v.Used),
			"free":         humanize.IBytes(v.Free),
			"used_percent": fmt.Sprintf("%.2f%%", v.UsedPercent),
		}
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		utility.GetLogger(c).Warn().Err(err).Msg("Host probe failed, health report is partial")
		resp["probe_error"] = err.Error()
	}
	resp["runtime"] = runtime

	return c.JSON(http.StatusOK, resp)
}
