// Package export holds the per-run state of a batch data export: the segmenter
// feeding records to the provider, naming of the current output file,
// cooperative cancellation and the counters a provider accumulates.
package export

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/alexisbeaulieu97/exportrun/internal/ports"
)

// Options configures a new ExecutionContext. Naming fields and Folder are
// fixed for the lifetime of the context.
type Options struct {
	Folder            string
	FileNamePattern   string
	FileExtension     string
	MaxFileNameLength int

	LanguageID int
	Store      Record
	Customer   Record
	Currency   Record

	// ConfigurationData is provider specific and passed through unmodified.
	ConfigurationData any

	// Cancellation is raised by whoever controls the run. A nil signal means
	// the run cannot be canceled.
	Cancellation *Signal
	Logger       ports.Logger
}

// ExecutionContext is the handle a provider receives for one export run.
//
// One goroutine drives the run: it attaches segmenters, increments counters
// and writes custom properties. IsCanceled, SuccessfulExportedRecords and
// the naming methods may additionally be called from other goroutines.
type ExecutionContext struct {
	mu        sync.RWMutex
	segmenter Segmenter
	state     slotState

	folder            string
	fileNamePattern   string
	fileExtension     string
	maxFileNameLength int

	languageID        int
	store             Record
	customer          Record
	currency          Record
	configurationData any

	cancellation *Signal
	log          ports.Logger

	customProperties map[string]any
	successful       atomic.Int64
}

// NewExecutionContext validates opts and returns a context without a segmenter.
func NewExecutionContext(opts Options) (*ExecutionContext, error) {
	if opts.Folder == "" {
		return nil, newOptionsError("folder", "folder is required")
	}
	if !filepath.IsAbs(opts.Folder) {
		return nil, newOptionsError("folder", "folder must be an absolute path")
	}
	if opts.FileNamePattern == "" {
		return nil, newOptionsError("file_name_pattern", "file name pattern is required")
	}
	if opts.MaxFileNameLength < 0 {
		return nil, newOptionsError("max_file_name_length", "max file name length must not be negative")
	}

	cancellation := opts.Cancellation
	if cancellation == nil {
		cancellation = NewSignal()
	}
	log := opts.Logger
	if log == nil {
		log = discardLogger{}
	}

	return &ExecutionContext{
		state:             slotEmpty,
		folder:            filepath.Clean(opts.Folder),
		fileNamePattern:   opts.FileNamePattern,
		fileExtension:     opts.FileExtension,
		maxFileNameLength: opts.MaxFileNameLength,
		languageID:        opts.LanguageID,
		store:             opts.Store.Clone(),
		customer:          opts.Customer.Clone(),
		currency:          opts.Currency.Clone(),
		configurationData: opts.ConfigurationData,
		cancellation:      cancellation,
		log:               log.With("component", "execution_context"),
		customProperties:  make(map[string]any),
	}, nil
}

// AttachSegmenter makes s the owned segmenter. A previously owned segmenter is
// closed first, and s only becomes visible to readers after that. When the
// previous segmenter fails to close, s is attached anyway and the failure is
// returned as ErrTeardownFailed.
//
// Attaching the segmenter that is already owned is a no-op.
func (c *ExecutionContext) AttachSegmenter(ctx context.Context, s Segmenter) error {
	if s == nil {
		return newError(ErrNilSegmenter, nil, nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case slotReleased:
		return newError(ErrContextClosed, nil, nil)
	case slotOwned:
		if sameSegmenter(c.segmenter, s) {
			return nil
		}
	}

	var teardownErr error
	if c.state == slotOwned {
		teardownErr = c.releaseLocked(ctx)
	}

	c.segmenter = s
	c.state = slotOwned
	c.log.Debug(ctx, "segmenter attached", "file_index", s.FileIndex())

	return teardownErr
}

// Close ends the run and releases the owned segmenter. Further calls are no-ops.
func (c *ExecutionContext) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == slotReleased {
		return nil
	}

	previous := c.state
	var err error
	if previous == slotOwned {
		err = c.releaseLocked(ctx)
	}
	c.state = slotReleased
	c.log.Debug(ctx, "execution context closed", "previous_state", previous.String())
	return err
}

// releaseLocked closes the owned segmenter and empties the slot. Callers hold
// c.mu. The slot keeps the old segmenter until Close returns, so a panicking
// Close leaves it owned rather than half cleared.
func (c *ExecutionContext) releaseLocked(ctx context.Context) error {
	old := c.segmenter
	index := old.FileIndex()

	err := old.Close()
	c.segmenter = nil
	c.state = slotEmpty
	if err != nil {
		c.log.Warn(ctx, "segmenter teardown failed", "file_index", index, "error", err)
		return newError(ErrTeardownFailed, err, map[string]interface{}{"file_index": index})
	}
	c.log.Debug(ctx, "segmenter released", "file_index", index)
	return nil
}

// sameSegmenter compares without panicking on non-comparable dynamic types.
func sameSegmenter(a, b Segmenter) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// CurrentFileName resolves the file name for the active segment. It is
// derived on every call from a single observation of the segmenter slot.
func (c *ExecutionContext) CurrentFileName() (string, error) {
	c.mu.RLock()
	state := c.state
	index := -1
	if state == slotOwned {
		index = c.segmenter.FileIndex()
	}
	c.mu.RUnlock()

	switch state {
	case slotEmpty:
		return "", newError(ErrNoSegmenter, nil, nil)
	case slotReleased:
		return "", newError(ErrContextClosed, nil, nil)
	}

	return ResolveFileName(c.fileNamePattern, index, c.fileExtension, c.maxFileNameLength)
}

// CurrentFilePath joins Folder with CurrentFileName. The folder is not checked
// for existence.
func (c *ExecutionContext) CurrentFilePath() (string, error) {
	name, err := c.CurrentFileName()
	if err != nil {
		return "", err
	}
	return filepath.Join(c.folder, name), nil
}

// IsCanceled reports whether cancellation was requested. It never blocks.
func (c *ExecutionContext) IsCanceled() bool {
	return c.cancellation.Raised()
}

// IncrementSuccessCount adds the given amounts, or 1 when none are given, to
// the number of successfully exported records and returns the new total.
// Negative amounts are ignored.
func (c *ExecutionContext) IncrementSuccessCount(n ...int) int {
	if len(n) == 0 {
		return int(c.successful.Add(1))
	}
	var delta int64
	for _, v := range n {
		if v > 0 {
			delta += int64(v)
		}
	}
	return int(c.successful.Add(delta))
}

// SuccessfulExportedRecords returns the number of records the provider
// reported as exported.
func (c *ExecutionContext) SuccessfulExportedRecords() int {
	return int(c.successful.Load())
}

// Segmenter returns the owned segmenter, or nil when none is attached.
func (c *ExecutionContext) Segmenter() Segmenter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.segmenter
}

// Store returns a copy of the store record.
func (c *ExecutionContext) Store() Record { return c.store.Clone() }

// Customer returns a copy of the customer record.
func (c *ExecutionContext) Customer() Record { return c.customer.Clone() }

// Currency returns a copy of the currency record.
func (c *ExecutionContext) Currency() Record { return c.currency.Clone() }

// LanguageID is zero when the export has no language context.
func (c *ExecutionContext) LanguageID() int { return c.languageID }

// Log returns the logger providers should write run information to.
func (c *ExecutionContext) Log() ports.Logger { return c.log }

// Folder is the output directory of the run.
func (c *ExecutionContext) Folder() string { return c.folder }

// FileNamePattern is the unresolved pattern, placeholder included.
func (c *ExecutionContext) FileNamePattern() string { return c.fileNamePattern }

// FileExtension is appended to every resolved name.
func (c *ExecutionContext) FileExtension() string { return c.fileExtension }

// MaxFileNameLength is the rune limit of the base name; zero means unlimited.
func (c *ExecutionContext) MaxFileNameLength() int { return c.maxFileNameLength }

// ConfigurationData returns the provider specific payload unchanged.
func (c *ExecutionContext) ConfigurationData() any { return c.configurationData }

// CustomProperties returns the live property bag. Only the goroutine driving
// the run may modify it.
func (c *ExecutionContext) CustomProperties() map[string]any { return c.customProperties }

// SetCustomProperty stores value under key in the property bag.
func (c *ExecutionContext) SetCustomProperty(key string, value any) {
	c.customProperties[key] = value
}

// CustomProperty returns the value stored under key.
func (c *ExecutionContext) CustomProperty(key string) (any, bool) {
	v, ok := c.customProperties[key]
	return v, ok
}

type discardLogger struct{}

func (discardLogger) Debug(context.Context, string, ...interface{}) {}
func (discardLogger) Info(context.Context, string, ...interface{}) {}
func (discardLogger) Warn(context.Context, string, ...interface{}) {}
func (discardLogger) Error(context.Context, string, ...interface{}) {}
func (d discardLogger) With(...interface{}) ports.Logger { return d }
