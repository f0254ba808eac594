package bufferpool

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
)

type metrics struct {
	hits         metric.Int64Counter
	misses       metric.Int64Counter
	evictions    metric.Int64Counter
	lockTimeouts metric.Int64Counter
}

func newMetrics(meter metric.Meter) (metrics, error) {
	var (
		m    metrics
		errs []error
		err  error
	)

	m.hits, err = meter.Int64Counter(
		"heapdb.bufferpool.hits",
		metric.WithDescription("page requests served from the cache"),
	)
	errs = append(errs, err)

	m.misses, err = meter.Int64Counter(
		"heapdb.bufferpool.misses",
		metric.WithDescription("page requests that read from disk"),
	)
	errs = append(errs, err)

	m.evictions, err = meter.Int64Counter(
		"heapdb.bufferpool.evictions",
		metric.WithDescription("clean pages dropped to make room"),
	)
	errs = append(errs, err)

	m.lockTimeouts, err = meter.Int64Counter(
		"heapdb.bufferpool.lock_timeouts",
		metric.WithDescription("lock waits that ran out of time"),
	)
	errs = append(errs, err)

	if err := multierr.Combine(errs...); err != nil {
		return metrics{}, errors.Wrap(err, "register buffer pool metrics")
	}
	return m, nil
}

func inc(c metric.Int64Counter, n int) {
	c.Add(context.Background(), int64(n))
}
