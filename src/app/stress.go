package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/panjf2000/ants"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/heap"
	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
)

var stressSchema = tuple.NewTupleDesc(
	[]tuple.Type{tuple.IntType, tuple.IntType},
	[]string{"txn", "seq"},
)

type StressStats struct {
	Committed atomic.Int64
	Retries   atomic.Int64
	GaveUp    atomic.Int64
}

// StressEntrypoint runs concurrent insert transactions against one table,
// retrying those aborted by lock timeouts.
type StressEntrypoint struct {
	Base

	EnvFile string
	Out     io.Writer

	env    workloadEnv
	table  *heap.File
	tracer trace.Tracer
	Stats  StressStats
}

var _ Entrypoint = &StressEntrypoint{}

func (e *StressEntrypoint) Init(context.Context) error {
	env, err := loadWorkloadEnv(e.EnvFile)
	if err != nil {
		return err
	}
	e.env = env

	if err := e.open(); err != nil {
		return err
	}

	e.table, err = e.engine.OpenTable(env.Table, stressSchema)
	if err != nil {
		return multierr.Append(err, e.Close())
	}

	e.tracer = otel.Tracer("github.com/Blackdeer1524/HeapDB/src/app")
	if e.Out == nil {
		e.Out = io.Discard
	}
	return nil
}

func (e *StressEntrypoint) Run(ctx context.Context) error {
	pool, err := ants.NewPool(e.env.Workers)
	if err != nil {
		return errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		fatalMu  sync.Mutex
		fatalErr error
	)

	e.log.Infow("stress started", "table", e.env.Table, "workers", e.env.Workers, "txns", e.env.Txns)

	for i := range e.env.Txns {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()

			if err := e.runTxn(ctx, i); err != nil {
				fatalMu.Lock()
				fatalErr = multierr.Append(fatalErr, err)
				fatalMu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return errors.Wrap(err, "submit transaction")
		}
	}
	wg.Wait()

	_, _ = fmt.Fprintf(
		e.Out,
		"committed=%d retries=%d gave_up=%d\n",
		e.Stats.Committed.Load(), e.Stats.Retries.Load(), e.Stats.GaveUp.Load(),
	)
	e.log.Infow(
		"stress finished",
		"committed", e.Stats.Committed.Load(),
		"retries", e.Stats.Retries.Load(),
		"gave_up", e.Stats.GaveUp.Load(),
	)
	return fatalErr
}

// runTxn returns an error only for failures a retry cannot fix.
func (e *StressEntrypoint) runTxn(ctx context.Context, n int) error {
	ctx, span := e.tracer.Start(
		ctx,
		"stress.txn",
		trace.WithAttributes(attribute.Int("stress.txn", n)),
	)
	defer span.End()

	for attempt := 0; attempt <= e.env.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil
		}

		err := e.engine.Do(func(tid common.TxnID) error {
			span.AddEvent("attempt", trace.WithAttributes(
				attribute.Int("attempt", attempt),
				attribute.String("txn.id", tid.String()),
			))
			return e.insertBatch(tid, n)
		})
		if err == nil {
			e.Stats.Committed.Add(1)
			span.SetStatus(codes.Ok, "")
			return nil
		}

		if !common.IsAborted(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transaction failed")
			return errors.Wrapf(err, "stress transaction %d", n)
		}
		if attempt < e.env.MaxRetries {
			e.Stats.Retries.Add(1)
			e.log.Debugw("transaction aborted, retrying", "n", n, "attempt", attempt, "error", err)
		}
	}

	e.Stats.GaveUp.Add(1)
	span.SetStatus(codes.Error, "retries exhausted")
	return nil
}

func (e *StressEntrypoint) insertBatch(tid common.TxnID, n int) error {
	pool := e.engine.Pool()

	for seq := range e.env.TuplesPerTxn {
		t := tuple.Ints(stressSchema, int32(n), int32(seq)) //nolint:gosec
		if err := pool.InsertTuple(tid, e.table.ID(), t); err != nil {
			return err
		}

		if e.env.DeleteEvery > 0 && (seq+1)%e.env.DeleteEvery == 0 {
			if err := pool.DeleteTuple(tid, t); err != nil {
				return err
			}
		}
	}
	return nil
}
