package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/exportrun/internal/logger"
)

type fakeSegmenter struct {
	index    int
	closeErr error
	journal  *journal
	closed   int
}

func (s *fakeSegmenter) FileIndex() int { return s.index }

func (s *fakeSegmenter) Close() error {
	s.closed++
	if s.journal != nil {
		s.journal.add("close", s.index)
	}
	return s.closeErr
}

type journal struct {
	mu      sync.Mutex
	entries []journalEntry
}

type journalEntry struct {
	op    string
	index int
}

func (j *journal) add(op string, index int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, journalEntry{op: op, index: index})
}

// sliceSegmenter has a non-comparable dynamic type.
type sliceSegmenter []int

func (s sliceSegmenter) FileIndex() int { return s[0] }
func (s sliceSegmenter) Close() error   { return nil }

func newTestContext(t *testing.T, opts Options) *ExecutionContext {
	t.Helper()
	if opts.Folder == "" {
		opts.Folder = filepath.Join(t.TempDir(), "out")
	}
	if opts.FileNamePattern == "" {
		opts.FileNamePattern = "export-" + FileNumberPlaceholder
	}
	ec, err := NewExecutionContext(opts)
	require.NoError(t, err)
	return ec
}

func TestNewExecutionContextValidatesOptions(t *testing.T) {
	t.Parallel()

	abs := t.TempDir()
	tests := []struct {
		name  string
		opts  Options
		field string
	}{
		{"missing folder", Options{FileNamePattern: "x"}, "folder"},
		{"relative folder", Options{Folder: "exports", FileNamePattern: "x"}, "folder"},
		{"missing pattern", Options{Folder: abs}, "file_name_pattern"},
		{"negative length", Options{Folder: abs, FileNamePattern: "x", MaxFileNameLength: -1}, "max_file_name_length"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewExecutionContext(tc.opts)
			require.ErrorIs(t, err, ErrInvalidOptions)

			var ctxErr *Error
			require.ErrorAs(t, err, &ctxErr)
			require.Equal(t, tc.field, ctxErr.Context["field"])
		})
	}
}

func TestCurrentFileNameRequiresSegmenter(t *testing.T) {
	t.Parallel()

	ec := newTestContext(t, Options{})

	_, err := ec.CurrentFileName()
	require.ErrorIs(t, err, ErrNoSegmenter)

	_, err = ec.CurrentFilePath()
	require.ErrorIs(t, err, ErrNoSegmenter)
	require.Nil(t, ec.Segmenter())
}

func TestCurrentFileNameFollowsActiveSegment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	folder := t.TempDir()
	ec := newTestContext(t, Options{
		Folder:            folder,
		FileNamePattern:   "export-" + FileNumberPlaceholder,
		FileExtension:     ".csv",
		MaxFileNameLength: 20,
	})

	require.NoError(t, ec.AttachSegmenter(ctx, &fakeSegmenter{index: 3}))

	first, err := ec.CurrentFileName()
	require.NoError(t, err)
	require.Equal(t, "export-00003.csv", first)

	again, err := ec.CurrentFileName()
	require.NoError(t, err)
	require.Equal(t, first, again)

	path, err := ec.CurrentFilePath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(folder, "export-00003.csv"), path)

	require.NoError(t, ec.AttachSegmenter(ctx, &fakeSegmenter{index: 4}))
	next, err := ec.CurrentFileName()
	require.NoError(t, err)
	require.Equal(t, "export-00004.csv", next)
}

func TestCurrentFileNameTruncatesBaseOnly(t *testing.T) {
	t.Parallel()

	ec := newTestContext(t, Options{
		FileNamePattern:   "export-" + FileNumberPlaceholder,
		FileExtension:     ".csv",
		MaxFileNameLength: 10,
	})
	require.NoError(t, ec.AttachSegmenter(context.Background(), &fakeSegmenter{index: 3}))

	name, err := ec.CurrentFileName()
	require.NoError(t, err)
	require.Equal(t, "export-000.csv", name)
}

func TestCurrentFileNameRejectsNegativeIndex(t *testing.T) {
	t.Parallel()

	ec := newTestContext(t, Options{})
	require.NoError(t, ec.AttachSegmenter(context.Background(), &fakeSegmenter{index: -2}))

	_, err := ec.CurrentFileName()
	require.ErrorIs(t, err, ErrInvalidFileIndex)
}

func TestAttachSegmenterReleasesPreviousFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := &journal{}
	ec := newTestContext(t, Options{})

	first := &fakeSegmenter{index: 0, journal: log}
	second := &fakeSegmenter{index: 1, journal: log}

	require.NoError(t, ec.AttachSegmenter(ctx, first))
	require.Zero(t, first.closed)
	require.Same(t, first, ec.Segmenter())

	require.NoError(t, ec.AttachSegmenter(ctx, second))
	require.Equal(t, 1, first.closed)
	require.Zero(t, second.closed)
	require.Same(t, second, ec.Segmenter())
	require.Equal(t, []journalEntry{{op: "close", index: 0}}, log.entries)
}

func TestAttachSegmenterSecondBecomesVisibleOnlyAfterTeardown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ec := newTestContext(t, Options{})

	var observed Segmenter
	first := &observingSegmenter{index: 0}
	first.onClose = func() {
		// The writer still holds the slot, so read from another goroutine
		// and ensure it cannot see the second segmenter yet.
		done := make(chan struct{})
		go func() {
			defer close(done)
			observed = ec.Segmenter()
		}()
		first.pending = done
	}
	second := &fakeSegmenter{index: 1}

	require.NoError(t, ec.AttachSegmenter(ctx, first))
	require.NoError(t, ec.AttachSegmenter(ctx, second))

	<-first.pending
	require.Same(t, second, observed)
	require.Equal(t, 1, first.closed)
}

type observingSegmenter struct {
	index   int
	closed  int
	onClose func()
	pending chan struct{}
}

func (s *observingSegmenter) FileIndex() int { return s.index }

func (s *observingSegmenter) Close() error {
	s.closed++
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

func TestAttachSegmenterTeardownFailureStillAttaches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("flush failed")
	ec := newTestContext(t, Options{FileExtension: ".csv"})

	failing := &fakeSegmenter{index: 0, closeErr: boom}
	next := &fakeSegmenter{index: 1}

	require.NoError(t, ec.AttachSegmenter(ctx, failing))
	err := ec.AttachSegmenter(ctx, next)
	require.ErrorIs(t, err, ErrTeardownFailed)
	require.ErrorIs(t, err, boom)

	var ctxErr *Error
	require.ErrorAs(t, err, &ctxErr)
	require.Equal(t, 0, ctxErr.Context["file_index"])

	require.Same(t, next, ec.Segmenter())
	name, err := ec.CurrentFileName()
	require.NoError(t, err)
	require.Equal(t, "export-00001.csv", name)

	require.NoError(t, ec.Close(ctx))
	require.Equal(t, 1, failing.closed)
	require.Equal(t, 1, next.closed)
}

func TestAttachSegmenterSameInstanceIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ec := newTestContext(t, Options{})
	seg := &fakeSegmenter{index: 2}

	require.NoError(t, ec.AttachSegmenter(ctx, seg))
	require.NoError(t, ec.AttachSegmenter(ctx, seg))
	require.Zero(t, seg.closed)

	require.NoError(t, ec.Close(ctx))
	require.Equal(t, 1, seg.closed)
}

func TestAttachSegmenterHandlesNonComparableSegmenters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ec := newTestContext(t, Options{})

	require.NoError(t, ec.AttachSegmenter(ctx, sliceSegmenter{0}))
	require.NoError(t, ec.AttachSegmenter(ctx, sliceSegmenter{1}))

	name, err := ec.CurrentFileName()
	require.NoError(t, err)
	require.Equal(t, "export-00001", name)
}

func TestAttachSegmenterRejectsNil(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ec := newTestContext(t, Options{})
	seg := &fakeSegmenter{index: 5}
	require.NoError(t, ec.AttachSegmenter(ctx, seg))

	err := ec.AttachSegmenter(ctx, nil)
	require.ErrorIs(t, err, ErrNilSegmenter)
	require.Same(t, seg, ec.Segmenter())
	require.Zero(t, seg.closed)
}

func TestCloseReleasesOnceAndBlocksReuse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ec := newTestContext(t, Options{})
	seg := &fakeSegmenter{index: 0}

	require.NoError(t, ec.AttachSegmenter(ctx, seg))
	require.NoError(t, ec.Close(ctx))
	require.NoError(t, ec.Close(ctx))
	require.Equal(t, 1, seg.closed)
	require.Nil(t, ec.Segmenter())

	_, err := ec.CurrentFileName()
	require.ErrorIs(t, err, ErrContextClosed)

	late := &fakeSegmenter{index: 1}
	require.ErrorIs(t, ec.AttachSegmenter(ctx, late), ErrContextClosed)
	require.Zero(t, late.closed)
}

func TestCloseWithoutSegmenter(t *testing.T) {
	t.Parallel()

	ec := newTestContext(t, Options{})
	require.NoError(t, ec.Close(context.Background()))

	_, err := ec.CurrentFileName()
	require.ErrorIs(t, err, ErrContextClosed)
}

func TestCloseReportsTeardownFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ec := newTestContext(t, Options{})
	require.NoError(t, ec.AttachSegmenter(ctx, &fakeSegmenter{index: 0, closeErr: errors.New("disk full")}))

	require.ErrorIs(t, ec.Close(ctx), ErrTeardownFailed)
	require.NoError(t, ec.Close(ctx))
}

func TestIsCanceledObservesSignalAcrossGoroutines(t *testing.T) {
	t.Parallel()

	sig := NewSignal()
	ec := newTestContext(t, Options{Cancellation: sig})
	require.False(t, ec.IsCanceled())

	var (
		wg     sync.WaitGroup
		raised bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		raised = sig.Raise()
	}()
	wg.Wait()
	require.True(t, raised)

	for i := 0; i < 100; i++ {
		require.True(t, ec.IsCanceled())
	}
	require.False(t, sig.Raise(), "signal is raised only once")
	require.True(t, ec.IsCanceled())
}

func TestIsCanceledWithoutSignal(t *testing.T) {
	t.Parallel()

	ec := newTestContext(t, Options{})
	require.False(t, ec.IsCanceled())
}

func TestIncrementSuccessCountIsMonotonic(t *testing.T) {
	t.Parallel()

	ec := newTestContext(t, Options{})
	require.Zero(t, ec.SuccessfulExportedRecords())

	for k := 1; k <= 25; k++ {
		require.Equal(t, k, ec.IncrementSuccessCount())
		require.Equal(t, k, ec.SuccessfulExportedRecords())
	}

	require.Equal(t, 35, ec.IncrementSuccessCount(10))
	require.Equal(t, 35, ec.IncrementSuccessCount(-4))
	require.Equal(t, 38, ec.IncrementSuccessCount(1, 2))
}

func TestAccessorsExposeRunMetadata(t *testing.T) {
	t.Parallel()

	folder := t.TempDir()
	store := Record{"id": 1, "name": "Main store"}
	payload := struct{ Delimiter string }{Delimiter: ";"}

	ec := newTestContext(t, Options{
		Folder:            folder,
		FileNamePattern:   "feed-" + FileNumberPlaceholder,
		FileExtension:     ".xml",
		MaxFileNameLength: 40,
		LanguageID:        2,
		Store:             store,
		Customer:          Record{"email": "export@example.com"},
		Currency:          Record{"code": "EUR"},
		ConfigurationData: payload,
	})

	require.Equal(t, folder, ec.Folder())
	require.Equal(t, "feed-"+FileNumberPlaceholder, ec.FileNamePattern())
	require.Equal(t, ".xml", ec.FileExtension())
	require.Equal(t, 40, ec.MaxFileNameLength())
	require.Equal(t, 2, ec.LanguageID())
	require.Equal(t, payload, ec.ConfigurationData())
	require.NotNil(t, ec.Log())

	name, ok := ec.Store().Get("name")
	require.True(t, ok)
	require.Equal(t, "Main store", name)
	require.Equal(t, "EUR", ec.Currency()["code"])
	require.Equal(t, "export@example.com", ec.Customer()["email"])

	// Records are copies; callers cannot change the run's view.
	ec.Store()["name"] = "changed"
	store["name"] = "changed too"
	require.Equal(t, "Main store", ec.Store()["name"])
}

func TestCustomPropertiesAreShared(t *testing.T) {
	t.Parallel()

	ec := newTestContext(t, Options{})
	require.Empty(t, ec.CustomProperties())

	ec.SetCustomProperty("written", 3)
	ec.CustomProperties()["cursor"] = "abc"

	v, ok := ec.CustomProperty("cursor")
	require.True(t, ok)
	require.Equal(t, "abc", v)
	require.Equal(t, 3, ec.CustomProperties()["written"])

	_, ok = ec.CustomProperty("missing")
	require.False(t, ok)
}

type panickingSegmenter struct {
	index int
}

func (s *panickingSegmenter) FileIndex() int { return s.index }
func (s *panickingSegmenter) Close() error   { panic("flush exploded") }

func TestAttachSegmenterKeepsOldSegmenterWhenClosePanics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ec := newTestContext(t, Options{})
	first := &panickingSegmenter{index: 4}
	require.NoError(t, ec.AttachSegmenter(ctx, first))

	require.Panics(t, func() {
		_ = ec.AttachSegmenter(ctx, &fakeSegmenter{index: 5})
	})

	require.Same(t, first, ec.Segmenter())
	var name string
	require.NotPanics(t, func() {
		var err error
		name, err = ec.CurrentFileName()
		require.NoError(t, err)
	})
	require.Equal(t, "export-00004", name)
}

func TestCloseLogsPreviousSlotState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		attach bool
		want   string
	}{
		{"owned segmenter", true, "owned"},
		{"never attached", false, "empty"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf := &bytes.Buffer{}
			log, err := logger.New(logger.Options{Level: "debug", Writer: buf})
			require.NoError(t, err)

			ctx := context.Background()
			ec := newTestContext(t, Options{Logger: log})
			if tc.attach {
				require.NoError(t, ec.AttachSegmenter(ctx, &fakeSegmenter{index: 1}))
			}
			require.NoError(t, ec.Close(ctx))

			var closed map[string]any
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				var entry map[string]any
				require.NoError(t, json.Unmarshal([]byte(line), &entry))
				if entry["message"] == "execution context closed" {
					closed = entry
				}
			}
			require.NotNil(t, closed)
			require.Equal(t, tc.want, closed["previous_state"])
			require.Equal(t, "execution_context", closed["component"])
		})
	}
}

func TestSlotStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "empty", slotEmpty.String())
	require.Equal(t, "owned", slotOwned.String())
	require.Equal(t, "released", slotReleased.String())
	require.Equal(t, "unknown", slotState(42).String())
}
