package submitter

import (
	"fmt"
	"io"
	"sync"
)

// Variant selects how a toast is presented.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Toast is a transient notification describing the outcome of a submission.
type Toast struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

// Failed reports whether the toast describes a failed submission.
func (t Toast) Failed() bool {
	return t.Variant == VariantDestructive
}

func (t Toast) String() string {
	if t.Description == "" {
		return t.Title
	}
	return t.Title + ": " + t.Description
}

// Notifier displays toasts.
type Notifier interface {
	Notify(Toast)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

type nopNotifier struct{}

func (nopNotifier) Notify(Toast) {}

// WriterNotifier prints one line per toast.
type WriterNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriterNotifier returns a Notifier writing to out.
func NewWriterNotifier(out io.Writer) *WriterNotifier {
	return &WriterNotifier{out: out}
}

func (w *WriterNotifier) Notify(t Toast) {
	w.mu.Lock()
	defer w.mu.Unlock()

	marker := "✓"
	if t.Failed() {
		marker = "✗"
	}
	fmt.Fprintf(w.out, "%s %s\n", marker, t)
}
