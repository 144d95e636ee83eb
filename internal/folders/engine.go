// Package folders maintains the folder forest that organizes the host's
// macro list: the in-memory tree, its save-through persistence, and the
// reconciliation pass that rebuilds it against the live entry collection.
package folders

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/mfolders/internal/host"
	"github.com/starford/mfolders/internal/models"
	"github.com/starford/mfolders/internal/registry"
	"github.com/starford/mfolders/internal/storage"
)

// DefaultDepthLimit bounds the length of a folder's path.
const DefaultDepthLimit = 8

// ErrClosed is returned by operations submitted after Close.
var ErrClosed = errors.New("folders: engine closed")

// RenderSink is told whenever the tree changed and should be redrawn.
// Notify must not block.
type RenderSink interface {
	Notify()
}

// RenderFunc adapts a function to RenderSink.
type RenderFunc func()

// Notify calls f.
func (f RenderFunc) Notify() { f() }

// Options configures an Engine.
type Options struct {
	DepthLimit int
	ClientID   string
	Users      []models.User
	Logger     *slog.Logger
	Sink       RenderSink
}

type request struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// Engine owns the folder forest and the entry registry.
//
// Concurrency model: a single internal loop goroutine owns every piece of tree
// state. Public methods submit closures to the loop and wait for them, so each
// operation runs to completion before the next one starts and a detach from
// one folder plus attach to another is atomic with respect to all other
// operations. Host notifications enter the same loop.
type Engine struct {
	store  storage.Store
	source host.EntrySource
	log    *slog.Logger
	sink   RenderSink
	limit  int
	client string
	users  []models.User

	reqCh   chan request
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool

	// Host notifications waiting for the loop, in arrival order.
	eventsMu sync.Mutex
	events   []host.Event
	wakeCh   chan struct{}

	// Owned by the loop goroutine.
	folders       map[string]*models.Folder
	reg           *registry.Registry
	records       models.FolderMap
	userFolderLoc string
	collator      *collate.Collator
	newID         func() (string, error)
}

// New creates an engine and starts its loop. The tree is empty until the
// first Reconcile.
func New(store storage.Store, source host.EntrySource, opts Options) *Engine {
	if opts.DepthLimit <= 0 {
		opts.DepthLimit = DefaultDepthLimit
	}
	if opts.ClientID == "" {
		opts.ClientID = "local"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sink == nil {
		opts.Sink = RenderFunc(func() {})
	}

	e := &Engine{
		store:    store,
		source:   source,
		log:      opts.Logger,
		sink:     opts.Sink,
		limit:    opts.DepthLimit,
		client:   opts.ClientID,
		users:    opts.Users,
		reqCh:    make(chan request),
		wakeCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
		folders:  make(map[string]*models.Folder),
		reg:      registry.New(),
		records:  make(models.FolderMap),
		collator: collate.New(language.Und, collate.IgnoreCase),
		newID:    generateID,
	}

	go e.run()
	return e
}

func (e *Engine) run() {
	defer close(e.stopped)

	for {
		select {
		case <-e.stopCh:
			return

		case req := <-e.reqCh:
			req.done <- req.fn(req.ctx)

		case <-e.wakeCh:
			for _, ev := range e.takeEvents() {
				if err := e.handleEvent(context.Background(), ev); err != nil {
					e.log.Error("folders: host event failed",
						slog.String("kind", string(ev.Kind)),
						slog.String("entry", ev.Entry.ID),
						slog.String("error", err.Error()))
				}
			}
		}
	}
}

func (e *Engine) takeEvents() []host.Event {
	e.eventsMu.Lock()
	defer e.eventsMu.Unlock()
	evs := e.events
	e.events = nil
	return evs
}

// Close stops the loop. Operations in flight complete first.
func (e *Engine) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.stopCh)
	}
	<-e.stopped
}

// do runs fn on the loop goroutine and returns its error. Once submitted, fn
// runs to completion even if ctx is cancelled.
func (e *Engine) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if e.closed.Load() {
		return ErrClosed
	}
	req := request{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case e.reqCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrClosed
	}
	select {
	case err := <-req.done:
		return err
	case <-e.stopped:
		select {
		case err := <-req.done:
			return err
		default:
			return ErrClosed
		}
	}
}

// EventHandler returns a host.EventHandler feeding the engine loop. It never
// blocks, so sources may notify from inside an engine operation. Events are
// applied in the order they were delivered.
func (e *Engine) EventHandler() host.EventHandler {
	return func(ev host.Event) {
		if e.closed.Load() {
			return
		}
		e.eventsMu.Lock()
		e.events = append(e.events, ev)
		e.eventsMu.Unlock()
		select {
		case e.wakeCh <- struct{}{}:
		default:
		}
	}
}

// HandleEvent processes a host notification synchronously.
func (e *Engine) HandleEvent(ctx context.Context, ev host.Event) error {
	return e.do(ctx, func(ctx context.Context) error {
		return e.handleEvent(ctx, ev)
	})
}

func (e *Engine) render() {
	e.sink.Notify()
}
