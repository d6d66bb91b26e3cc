package xltransform

import "log/slog"

// DefaultProgressInterval is the number of rows between progress notifications.
const DefaultProgressInterval = 100

// Options holds configuration for the Engine.
type Options struct {
	sheet            string
	headerRows       int
	progressInterval int
	observers        []Observer
	resolver         *Resolver
	io               SheetIO
	logger           *slog.Logger
	preWrite         func(SheetSink) error
}

func defaultOptions() *Options {
	return &Options{
		headerRows:       1,
		progressInterval: DefaultProgressInterval,
		io:               FileIO{},
	}
}

// Option configures the Engine.
type Option func(*Options)

// WithSheet sets the sheet read from the input and written to the output
// (default: the input's active sheet).
func WithSheet(name string) Option {
	return func(o *Options) { o.sheet = name }
}

// WithHeaderRows sets how many leading input rows are skipped (default: 1).
// When n > 0 the output receives one header row of column display names.
func WithHeaderRows(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.headerRows = n
		}
	}
}

// WithProgressInterval sets the number of rows between progress notifications (default: 100).
func WithProgressInterval(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.progressInterval = n
		}
	}
}

// WithObserver adds an observer that receives every notification of a run.
func WithObserver(fn Observer) Option {
	return func(o *Options) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// WithResolver sets the cell resolver (default: NewResolver()).
func WithResolver(r *Resolver) Option {
	return func(o *Options) { o.resolver = r }
}

// WithSheetIO replaces the spreadsheet I/O collaborator (default: FileIO).
func WithSheetIO(io SheetIO) Option {
	return func(o *Options) { o.io = io }
}

// WithLogger sets the logger for run lifecycle messages (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.logger = l }
}

// WithPreWrite sets a callback executed after the last row and before the
// output is written. An error fails the run.
func WithPreWrite(fn func(SheetSink) error) Option {
	return func(o *Options) { o.preWrite = fn }
}
