package serve

import (
	"fmt"
	"time"
)

func parseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", d)
	}
	return d, nil
}
