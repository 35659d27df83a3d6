// agent_monitor.go — фоновый сервис контроля liveness агентов.
//
// AgentMonitorService запускает горутину с ticker (PB_AGENT_MONITOR_INTERVAL),
// которая переводит в offline агентов, не выходивших на связь дольше
// PB_AGENT_OFFLINE_AFTER. Сам сервис агентов не опрашивает — liveness
// приходит извне через heartbeat (PUT /api/v1/agents/{id}/status).
//
// Prometheus-метрики:
//   - pb_agent_monitor_runs_total — количество проходов монитора
//   - pb_agents_marked_offline_total — количество переведённых в offline агентов
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/purgeboard/internal/repository"
)

// Prometheus-метрики мониторинга агентов.
var (
	monitorRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pb_agent_monitor_runs_total",
		Help: "Количество проходов монитора liveness агентов",
	})

	markedOffline = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pb_agents_marked_offline_total",
		Help: "Количество агентов, переведённых монитором в offline",
	})
)

// AgentMonitorService — фоновый сервис контроля liveness агентов.
type AgentMonitorService struct {
	agentRepo    repository.AgentRepository
	offlineAfter time.Duration
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAgentMonitorService создаёт сервис контроля liveness.
func NewAgentMonitorService(
	agentRepo repository.AgentRepository,
	offlineAfter time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *AgentMonitorService {
	return &AgentMonitorService{
		agentRepo:    agentRepo,
		offlineAfter: offlineAfter,
		interval:     interval,
		logger:       logger.With(slog.String("component", "agent_monitor")),
	}
}

// Start запускает фоновую горутину с периодической проверкой.
// Вызывается один раз при старте приложения.
func (s *AgentMonitorService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Монитор liveness агентов запущен",
			slog.String("interval", s.interval.String()),
			slog.String("offline_after", s.offlineAfter.String()),
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Монитор liveness агентов остановлен")
				return
			case <-ticker.C:
				if err := s.RunOnce(ctx); err != nil {
					s.logger.Error("Ошибка прохода монитора liveness",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (s *AgentMonitorService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// RunOnce выполняет один проход: переводит устаревших агентов в offline.
func (s *AgentMonitorService) RunOnce(ctx context.Context) error {
	monitorRuns.Inc()

	cutoff := time.Now().UTC().Add(-s.offlineAfter)
	marked, err := s.agentRepo.MarkOfflineBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if marked > 0 {
		markedOffline.Add(float64(marked))
		s.logger.Info("Агенты переведены в offline по таймауту",
			slog.Int("count", marked),
			slog.String("offline_after", s.offlineAfter.String()),
		)
	}
	return nil
}
