// Package provider holds export providers that plug into the run use case.
package provider

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/alexisbeaulieu97/exportrun/internal/domain/export"
	"github.com/alexisbeaulieu97/exportrun/internal/ports"
)

// recordSource is implemented by segmenters that expose their records.
type recordSource interface {
	Records() []export.Record
}

// DryRun walks every record of the attached segment without writing an
// export file. It reports the file each segment would produce to out.
type DryRun struct {
	mu     sync.Mutex
	out    io.Writer
	logger ports.Logger
}

// NewDryRun returns a DryRun reporting to out. A nil out discards reports.
func NewDryRun(out io.Writer, logger ports.Logger) *DryRun {
	if out == nil {
		out = io.Discard
	}
	return &DryRun{out: out, logger: logger}
}

// Execute counts the records of the current segment as exported and prints
// "<path> <records>" for it. A raised cancellation stops the walk and returns
// context.Canceled.
func (d *DryRun) Execute(ctx context.Context, ec *export.ExecutionContext) error {
	path, err := ec.CurrentFilePath()
	if err != nil {
		return err
	}

	seg := ec.Segmenter()
	src, ok := seg.(recordSource)
	if !ok {
		return fmt.Errorf("segmenter %T does not expose records", seg)
	}

	written := 0
	for range src.Records() {
		if ec.IsCanceled() {
			d.debug(ctx, "dry run interrupted", "file_path", path, "records", written)
			return context.Canceled
		}
		ec.IncrementSuccessCount()
		written++
	}

	d.mu.Lock()
	_, err = fmt.Fprintf(d.out, "%s %d\n", path, written)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write dry run report: %w", err)
	}

	d.debug(ctx, "dry run segment", "file_path", path, "records", written)
	return nil
}

func (d *DryRun) debug(ctx context.Context, msg string, fields ...interface{}) {
	if d.logger != nil {
		d.logger.Debug(ctx, msg, fields...)
	}
}
