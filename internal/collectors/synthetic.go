package collectors

import (
	"context"
	"time"

	"github.com/thisdougb/tally/internal/config"
	"github.com/thisdougb/tally/internal/metrics"
)

// KeystrokesLetter is the counter Synthetic increments.
const KeystrokesLetter = "keystrokes.letter"

// Synthetic stands in for a real input watcher, adding a fixed amount to
// a counter on every tick.
type Synthetic struct {
	Interval time.Duration
	Amount   int64
}

// NewSynthetic adds 5 keystrokes every 2 seconds.
func NewSynthetic() *Synthetic {
	return &Synthetic{Interval: 2 * time.Second, Amount: 5}
}

func (s *Synthetic) DeclaredMetrics() []metrics.Definition {
	return metrics.Counters(KeystrokesLetter)
}

func (s *Synthetic) Start(ctx context.Context, store *metrics.Store) error {
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := store.Update(func(tx *metrics.Tx) error {
					return tx.Add(KeystrokesLetter, s.Amount)
				})
				if err != nil {
					config.LogError(ctx, err.Error())
				}
			}
		}
	}()
	return nil
}
