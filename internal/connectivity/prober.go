package connectivity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/storysync/internal/logger"
)

// Prober periodically checks that the API host answers HTTP and feeds the
// result into a Monitor.
type Prober struct {
	url      string
	interval time.Duration
	monitor  *Monitor
	client   *http.Client
	logger   logger.Logger
	stopCh   chan struct{}
}

// NewProber creates a prober for url. Each probe is bounded by timeout.
func NewProber(url string, interval, timeout time.Duration, monitor *Monitor, log logger.Logger) *Prober {
	return &Prober{
		url:      url,
		interval: interval,
		monitor:  monitor,
		client:   probeClient(timeout),
		logger:   log,
		stopCh:   make(chan struct{}),
	}
}

func probeClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 0,
			}).DialContext,
			TLSHandshakeTimeout: timeout,
			DisableKeepAlives:   true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// A redirect is already an answer
			return http.ErrUseLastResponse
		},
	}
}

// Probe sends one HEAD. Any HTTP response means reachable, whatever the status.
func (p *Prober) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}
	_ = resp.Body.Close()
	return nil
}

// Check probes once and updates the monitor. A probe cut short by ctx leaves
// the belief unchanged.
func (p *Prober) Check(ctx context.Context) bool {
	err := p.Probe(ctx)
	if err != nil && ctx.Err() != nil {
		return p.monitor.IsOnline()
	}
	online := err == nil
	if p.monitor.SetOnline(online) {
		if online {
			p.logger.Info("remote API reachable", logger.String("url", p.url))
		} else {
			p.logger.Warn("remote API unreachable", logger.String("url", p.url), logger.Error(err))
		}
	}
	return online
}

// Start checks immediately, then every interval until Stop or ctx is done.
// A non-positive interval only runs the initial check.
func (p *Prober) Start(ctx context.Context) {
	p.Check(ctx)
	if p.interval <= 0 {
		return
	}

	ticker := time.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Check(ctx)
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *Prober) Stop() {
	select {
	case <-p.stopCh:
	default:
		close(p.stopCh)
	}
}
