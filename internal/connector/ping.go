package connector

import (
	"context"
	"fmt"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// PingResult holds ICMP reachability statistics for a device.
type PingResult struct {
	Target     string  `json:"target"`
	Sent       int     `json:"sent"`
	Received   int     `json:"received"`
	PacketLoss float64 `json:"packet_loss"`
	AvgRTTMs   float64 `json:"avg_rtt_ms"`
}

// Reachable reports whether any echo reply was received.
func (r *PingResult) Reachable() bool {
	return r.Received > 0
}

// Ping sends ICMP echo requests to the target and returns the statistics.
func Ping(ctx context.Context, target string, count int, timeout time.Duration, logger *zap.Logger) (*PingResult, error) {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		return nil, fmt.Errorf("create pinger: %w", err)
	}

	pinger.Count = count
	pinger.Timeout = timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := pinger.Run(); runErr != nil {
			logger.Debug("ping run error", zap.String("target", target), zap.Error(runErr))
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		pinger.Stop()
		return nil, ctx.Err()
	}

	stats := pinger.Statistics()
	return &PingResult{
		Target:     target,
		Sent:       stats.PacketsSent,
		Received:   stats.PacketsRecv,
		PacketLoss: stats.PacketLoss,
		AvgRTTMs:   float64(stats.AvgRtt.Microseconds()) / 1000.0,
	}, nil
}
