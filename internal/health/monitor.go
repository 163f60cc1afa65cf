package health

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const probeTimeout = 5 * time.Second

// Monitor periodically probes the backend and tracks whether it is reachable
type Monitor struct {
	logger   *zap.Logger
	probeURL string
	interval time.Duration
	client   *retryablehttp.Client
	events   chan domain.HealthStatus

	mu     sync.RWMutex
	status domain.HealthStatus
	// checkMu serializes probes so a forced check never overlaps a periodic one
	checkMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a monitor for the configured backend
func NewMonitor(logger *zap.Logger, cfg domain.Config) *Monitor {
	return newMonitor(logger, cfg.GetAPIBaseURL(), time.Duration(cfg.GetHealthInterval())*time.Second)
}

func newMonitor(logger *zap.Logger, baseURL string, interval time.Duration) *Monitor {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.HTTPClient.Timeout = probeTimeout
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Monitor{
		logger:   logger,
		probeURL: strings.TrimRight(baseURL, "/") + "/search?q=test",
		interval: interval,
		client:   client,
		events:   make(chan domain.HealthStatus, 4),
	}
}

// Events returns status changes
func (m *Monitor) Events() <-chan domain.HealthStatus {
	return m.events
}

// Status returns the last known backend status
func (m *Monitor) Status() domain.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Start probes immediately and then on every interval. It returns immediately.
func (m *Monitor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.Check(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()

	m.logger.Info("Backend health monitor started",
		zap.String("probe", m.probeURL),
		zap.Duration("interval", m.interval))
	return nil
}

// Stop ends periodic probing
func (m *Monitor) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	return nil
}

// Check probes the backend now and returns the resulting status
func (m *Monitor) Check(ctx context.Context) domain.HealthStatus {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	m.mu.Lock()
	m.status.Checking = true
	m.mu.Unlock()

	online := m.probe(ctx)

	m.mu.Lock()
	changed := m.status.Online == nil || *m.status.Online != online
	m.status.Online = &online
	m.status.Checking = false
	m.status.LastChecked = time.Now().UTC().Format(time.RFC3339)
	status := m.status
	m.mu.Unlock()

	if changed {
		if online {
			m.logger.Info("Backend is reachable")
		} else {
			m.logger.Warn("Backend is unreachable", zap.String("probe", m.probeURL))
		}
		select {
		case m.events <- status:
		default:
			m.logger.Warn("Health events channel full, dropping status change")
		}
	}
	return status
}

func (m *Monitor) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, m.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Debug("Health probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return Alive(resp.StatusCode)
}

// Alive reports whether a probe status code means the backend is up.
// 404 and 429 still prove a live server.
func Alive(status int) bool {
	return (status >= 200 && status < 300) ||
		status == http.StatusNotFound ||
		status == http.StatusTooManyRequests
}
