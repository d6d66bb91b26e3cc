package xltransform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// State is a step of the run state machine.
type State int32

const (
	StateIdle State = iota
	StateReading
	StateProcessing
	StateWriting
	StateCompleted
	StateFailed
)

var stateNames = [...]string{"idle", "reading", "processing", "writing", "completed", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int32(s))
	}
	return stateNames[s]
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// TemplateStore loads templates with their columns and ranges.
type TemplateStore interface {
	Load(ctx context.Context, id TemplateID) (*Template, error)
}

// Engine drives whole-file runs: it reads input rows, resolves them against a
// template and writes the output workbook.
type Engine struct {
	opts *Options

	mu      sync.Mutex
	subs    map[uint64]Observer
	nextSub uint64

	state atomic.Int32 // latest transition of any run
}

// NewEngine creates an Engine with the given options.
func NewEngine(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.resolver == nil {
		o.resolver = NewResolver()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.io == nil {
		o.io = FileIO{}
	}
	return &Engine{opts: o, subs: make(map[uint64]Observer)}
}

// ProcessFile runs tmpl over inputPath and writes outputPath with a one-off Engine.
func ProcessFile(ctx context.Context, inputPath, outputPath string, tmpl *Template, opts ...Option) Outcome[string] {
	return NewEngine(opts...).Run(ctx, inputPath, outputPath, tmpl)
}

// Subscribe registers an observer for subsequent runs and returns a function
// that removes it. Observers are captured when a run starts; subscribing
// while a run is in flight takes effect on the next run.
func (e *Engine) Subscribe(fn Observer) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// State returns the most recent state transition of any run on this engine,
// or StateIdle before the first run. When runs overlap the value interleaves
// their transitions; use Job.State to follow one particular run.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Run processes the whole input synchronously and returns the final Outcome.
// On success the Outcome carries outputPath.
func (e *Engine) Run(ctx context.Context, inputPath, outputPath string, tmpl *Template) Outcome[string] {
	r := e.newRun(func(s State) { e.state.Store(int32(s)) })
	return r.execute(ctx, inputPath, outputPath, tmpl)
}

// RunStored loads template id from store and runs it.
func (e *Engine) RunStored(ctx context.Context, inputPath, outputPath string, store TemplateStore, id TemplateID) Outcome[string] {
	tmpl, err := store.Load(ctx, id)
	if err != nil {
		r := e.newRun(func(s State) { e.state.Store(int32(s)) })
		err = &RunError{Op: fmt.Sprintf("load template %d", id), Kind: KindConfiguration, Err: err}
		r.abort(err)
		return Failure[string](err)
	}
	return e.Run(ctx, inputPath, outputPath, tmpl)
}

func (e *Engine) newRun(onState func(State)) *run {
	e.mu.Lock()
	observers := make([]Observer, 0, len(e.opts.observers)+len(e.subs))
	observers = append(observers, e.opts.observers...)
	for id := uint64(0); id < e.nextSub; id++ {
		if fn, ok := e.subs[id]; ok {
			observers = append(observers, fn)
		}
	}
	e.mu.Unlock()

	id := uuid.NewString()
	onState(StateIdle)
	return &run{
		id:        id,
		opts:      e.opts,
		observers: observers,
		log:       e.opts.logger.With("run_id", id),
		onState:   onState,
		entered:   make(map[State]bool),
	}
}

// run holds the per-run state. It is used by a single goroutine.
type run struct {
	id        string
	opts      *Options
	observers []Observer
	log       *slog.Logger
	onState   func(State)
	entered   map[State]bool
	finished  bool

	rows     int
	warnings int
	errs     int
}

func (r *run) emit(n Notification) {
	if r.finished {
		return
	}
	for _, fn := range r.observers {
		fn(n)
	}
}

// enter moves the run to s. A state notification is emitted the first time
// each state is entered so per-row transitions stay quiet.
func (r *run) enter(s State) {
	r.onState(s)
	if r.entered[s] {
		return
	}
	r.entered[s] = true
	r.emit(Notification{
		Severity: SeverityInfo,
		Type:     NoteState,
		State:    s,
		RowsDone: r.rows,
		Message:  "run " + s.String(),
	})
}

// abort reports err and moves the run to StateFailed.
func (r *run) abort(err error) {
	r.emit(Notification{Severity: SeverityError, Type: NoteState, Code: runErrorKind(err), Message: err.Error(), RowsDone: r.rows})
	r.enter(StateFailed)
	r.log.Error("run failed", "error", err, "rows", r.rows)
	r.finished = true
}

func (r *run) complete() {
	r.enter(StateCompleted)
	r.log.Info("run completed", "rows", r.rows, "warnings", r.warnings, "errors", r.errs)
	r.finished = true
}

func (r *run) execute(ctx context.Context, inputPath, outputPath string, tmpl *Template) Outcome[string] {
	r.log.Info("run started", "input", inputPath, "output", outputPath)
	if err := r.process(ctx, inputPath, outputPath, tmpl); err != nil {
		r.abort(err)
		return Failure[string](err)
	}
	r.complete()
	return Success(outputPath)
}

func (r *run) process(ctx context.Context, inputPath, outputPath string, tmpl *Template) error {
	if tmpl == nil {
		return configError("validate template", errors.New("template is nil"))
	}
	t := tmpl.Clone()
	if issues := ValidateTemplate(t); HasErrors(issues) {
		return configError("validate template", issuesError(issues))
	}
	cols := t.OrderedColumns()

	r.enter(StateReading)
	src, err := r.opts.io.OpenSource(inputPath)
	if err != nil {
		return ioError("open input", inputPath, err)
	}
	defer src.Close()

	sheet := r.opts.sheet
	if sheet == "" {
		sheet = src.DefaultSheet()
	}

	types := make([]DataType, len(cols))
	labels := make([]string, len(cols))
	for i, c := range cols {
		types[i] = c.Type
		labels[i] = c.Label()
	}
	sink, err := r.opts.io.NewSink(outputPath, sheet, types)
	if err != nil {
		return ioError("create output", outputPath, err)
	}
	defer sink.Close()

	outRow := 1
	if r.opts.headerRows > 0 {
		if err := writeHeader(sink, sheet, labels); err != nil {
			return ioError("write header", outputPath, err)
		}
		outRow = 2
	}
	firstRow := outRow

	for inRow := r.opts.headerRows + 1; ; inRow++ {
		if err := ctx.Err(); err != nil {
			return &RunError{Op: fmt.Sprintf("before row %d", inRow), Kind: KindCancelled, Path: inputPath, Err: err}
		}

		r.enter(StateReading)
		raw, err := src.ReadRow(sheet, inRow)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ioError(fmt.Sprintf("read row %d", inRow), inputPath, err)
		}

		r.enter(StateProcessing)
		values, notes := r.opts.resolver.ProcessRow(t, outRow, raw)

		r.enter(StateWriting)
		if err := sink.WriteRow(sheet, outRow, values); err != nil {
			return ioError(fmt.Sprintf("write row %d", outRow), outputPath, err)
		}

		for _, n := range notes {
			switch n.Severity {
			case SeverityWarning:
				r.warnings++
			case SeverityError:
				r.errs++
			}
			r.emit(n)
		}
		r.rows++
		outRow++
		if r.rows%r.opts.progressInterval == 0 {
			r.progress()
		}
	}
	if r.rows == 0 || r.rows%r.opts.progressInterval != 0 {
		r.progress()
	}

	r.enter(StateWriting)
	if r.opts.preWrite != nil {
		if err := r.opts.preWrite(sink); err != nil {
			return ioError("pre-write callback", outputPath, err)
		}
	}
	if err := commitOutput(outputPath, sink); err != nil {
		return ioError("write output", outputPath, err)
	}

	r.summarize(cols, firstRow, outRow-1)
	return nil
}

func (r *run) progress() {
	r.emit(Notification{
		Severity: SeverityInfo,
		Type:     NoteProgress,
		RowsDone: r.rows,
		Message:  fmt.Sprintf("%d rows processed", r.rows),
	})
}

// summarize emits one info notification per column naming the output range it filled.
func (r *run) summarize(cols []Column, first, last int) {
	if last < first {
		return
	}
	from, to := CellAddress(1, first), CellAddress(1, last)
	for i, c := range cols {
		letters, err := ColumnNumberToLetters(i + 1)
		if err != nil {
			continue
		}
		start, end, err := ChangeColumnInRange(from, to, letters)
		if err != nil {
			continue
		}
		r.emit(Notification{
			Severity:   SeverityInfo,
			Type:       NoteSummary,
			Column:     c.Position,
			ColumnName: c.Name,
			Cell:       start + ":" + end,
			RowsDone:   r.rows,
			Message:    fmt.Sprintf("column %q written to %s:%s", c.Name, start, end),
		})
	}
}

type headerWriter interface {
	WriteHeader(sheet string, row int, labels []string) error
}

func writeHeader(sink SheetSink, sheet string, labels []string) error {
	if hw, ok := sink.(headerWriter); ok {
		return hw.WriteHeader(sheet, 1, labels)
	}
	return sink.WriteRow(sheet, 1, labels)
}

// commitOutput writes sink to a temporary file next to path and renames it
// into place. On failure the temporary file is removed and path is untouched.
func commitOutput(path string, sink SheetSink) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".xltransform-*"+filepath.Ext(path))
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(name)
		}
	}()

	if err = sink.Write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}

func runErrorKind(err error) ErrorKind {
	var re *RunError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindNone
}
