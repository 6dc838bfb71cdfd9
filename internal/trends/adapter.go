package trends

import (
	"context"
	"log"
)

// Adapter fetches raw trend signals from one source. Implementations must
// tolerate partial or empty results.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]Signal, error)
}

// CollectSignals runs every adapter and pools their signals. An adapter
// failure is logged and contributes an empty result set; it never aborts
// the collection.
func CollectSignals(ctx context.Context, adapters []Adapter) []Signal {
	var all []Signal
	for _, a := range adapters {
		signals, err := a.Fetch(ctx)
		if err != nil {
			log.Printf("Signal adapter %s failed: %v", a.Name(), err)
			continue
		}
		all = append(all, signals...)
	}
	return all
}
