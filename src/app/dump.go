package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/heap"
)

// DumpEntrypoint prints slot occupancy of every page of a table and
// optionally the tuples themselves.
type DumpEntrypoint struct {
	Base

	Table      string
	Schema     string
	WithTuples bool
	Out        io.Writer

	table *heap.File
}

var _ Entrypoint = &DumpEntrypoint{}

func (e *DumpEntrypoint) Init(context.Context) error {
	desc, err := ParseSchema(e.Schema)
	if err != nil {
		return err
	}

	if err := e.open(); err != nil {
		return err
	}

	e.table, err = e.engine.OpenTable(e.Table, desc)
	if err != nil {
		return multierr.Append(err, e.Close())
	}

	if e.Out == nil {
		e.Out = io.Discard
	}
	return nil
}

func (e *DumpEntrypoint) Run(context.Context) error {
	return e.engine.Do(func(tid common.TxnID) error {
		numPages, err := e.table.NumPages()
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(e.Out, "table %s: %d pages\n", e.Table, numPages)
		for i := range numPages {
			pid := common.PageIdentity{TableID: e.table.ID(), PageNum: common.PageNum(i)} //nolint:gosec
			p, err := e.engine.Pool().GetPage(tid, pid, common.ReadOnly)
			if err != nil {
				return err
			}

			used := p.NumSlots() - p.NumEmptySlots()
			_, _ = fmt.Fprintf(e.Out, "page %d: %d/%d slots used\n", i, used, p.NumSlots())

			if !e.WithTuples {
				continue
			}
			for _, t := range p.Tuples() {
				_, _ = fmt.Fprintf(e.Out, "  %s %s\n", t.RecordID().Unwrap(), t)
			}
		}
		return nil
	})
}
