package ratelimit

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// StartSweeper запускает периодический Sweep по cron-выражению
// ("@every 10m", "*/5 * * * *"). Возвращает функцию остановки.
func (l *Limiter) StartSweeper(spec string, log *slog.Logger) (func(), error) {
	if log == nil {
		log = slog.Default()
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := l.Sweep(); n > 0 {
			log.Debug("rate limit sweep", "removed", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: invalid sweep schedule %q: %w", spec, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
