package bufferpool

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/Blackdeer1524/HeapDB/src/recovery"
	"github.com/Blackdeer1524/HeapDB/src/txns"
)

const (
	DefaultPages       = 50
	DefaultLockTimeout = 5 * time.Second
)

type options struct {
	lockTimeout      time.Duration
	lockPoolCapacity int
	probeTimeout     time.Duration
	txnLog           recovery.TxnLogger
	meter            metric.Meter
	policy           VictimPolicy
}

type Option func(*options)

// WithLockTimeout bounds every lock wait. A transaction that times out must
// abort.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

// WithLockPoolCapacity sets the soft bound on the number of page locks kept.
func WithLockPoolCapacity(n int) Option {
	return func(o *options) {
		o.lockPoolCapacity = n
	}
}

func WithLockProbeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.probeTimeout = d
	}
}

func WithTxnLogger(l recovery.TxnLogger) Option {
	return func(o *options) {
		o.txnLog = l
	}
}

func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

func WithVictimPolicy(p VictimPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

func defaultOptions(numPages int) options {
	return options{
		lockTimeout:      DefaultLockTimeout,
		lockPoolCapacity: numPages << 4,
		probeTimeout:     txns.DefaultProbeTimeout,
		txnLog:           recovery.NoLogs(),
		meter:            otel.Meter("github.com/Blackdeer1524/HeapDB/src/bufferpool"),
		policy:           CleanFirstLRU,
	}
}
