package inventory

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper ejecuta el barrido de stock bajo de forma periódica.
type Sweeper struct {
	monitor  *LowStockMonitor
	interval time.Duration
	log      zerolog.Logger
}

// NewSweeper construye el barrido; interval <= 0 usa 5 minutos.
func NewSweeper(monitor *LowStockMonitor, interval time.Duration, logger *zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "sweeper").Logger()
	}
	return &Sweeper{monitor: monitor, interval: interval, log: log}
}

// Run barre al iniciar y luego en cada tick hasta que ctx se cancele. Los errores de una
// pasada se registran y no detienen el ciclo.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.monitor.ScanAndAlert(ctx); err != nil {
		s.log.Error().Err(err).Msg("barrido de stock bajo falló")
	}
	if n, err := s.monitor.ResolveRecovered(ctx); err != nil {
		s.log.Error().Err(err).Msg("resolución de alertas falló")
	} else if n > 0 {
		s.log.Info().Int("resolved", n).Msg("alertas resueltas")
	}
}
