// Package hooks holds presentation-side request state: a fetch hook bound
// to a component lifetime and a loading flag around a single operation.
package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/taekwondodev/go-BaaS-Client/internal/httpapi"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

type State[T any] struct {
	Data    T
	Err     error
	Loading bool
	Status  Status
}

// Fetcher performs one request. ctx ends when the hook is unmounted.
type Fetcher[T any] func(ctx context.Context, url string, options map[string]any) (T, error)

// Policy decides which of several overlapping requests may write the state.
type Policy int

const (
	// KeepLatestResolved lets whichever request finishes last win, even
	// when it was dispatched earlier.
	KeepLatestResolved Policy = iota
	// KeepLatestDispatched ignores results of superseded requests.
	KeepLatestDispatched
)

type FetchOption[T any] func(*Fetch[T])

func WithPolicy[T any](p Policy) FetchOption[T] {
	return func(f *Fetch[T]) {
		f.policy = p
	}
}

// WithOnChange registers a listener called after every state change. It
// runs with the hook locked and must not call back into the hook.
func WithOnChange[T any](fn func(State[T])) FetchOption[T] {
	return func(f *Fetch[T]) {
		f.onChange = fn
	}
}

type Fetch[T any] struct {
	fetcher  Fetcher[T]
	policy   Policy
	onChange func(State[T])

	mu         sync.Mutex
	state      State[T]
	lifetime   context.Context
	cancel     context.CancelFunc
	url        string
	options    map[string]any
	key        string
	generation uint64
	inflight   sync.WaitGroup
}

func NewFetch[T any](fetcher Fetcher[T], options ...FetchOption[T]) *Fetch[T] {
	f := &Fetch[T]{
		fetcher: fetcher,
		policy:  KeepLatestResolved,
		state:   State[T]{Loading: true, Status: StatusLoading},
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Mount binds the hook to a new lifetime and dispatches the first request.
func (f *Fetch[T]) Mount(rawURL string, options map[string]any) {
	f.mu.Lock()
	if f.lifetime != nil && f.lifetime.Err() == nil {
		f.mu.Unlock()
		f.SetRequest(rawURL, options)
		return
	}
	f.lifetime, f.cancel = context.WithCancel(context.Background())
	f.url, f.options, f.key = rawURL, options, requestKey(rawURL, options)
	f.dispatchLocked()
	f.mu.Unlock()
}

// SetRequest dispatches again only when the URL or the options changed.
func (f *Fetch[T]) SetRequest(rawURL string, options map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.mountedLocked() {
		return
	}
	key := requestKey(rawURL, options)
	if key == f.key {
		return
	}
	f.url, f.options, f.key = rawURL, options, key
	f.dispatchLocked()
}

func (f *Fetch[T]) Refetch() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mountedLocked() {
		f.dispatchLocked()
	}
}

// Unmount cancels the lifetime. No state change or notification happens
// afterwards, whatever the pending requests return.
func (f *Fetch[T]) Unmount() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
	}
}

func (f *Fetch[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Wait blocks until every dispatched request has returned.
func (f *Fetch[T]) Wait() {
	f.inflight.Wait()
}

func (f *Fetch[T]) mountedLocked() bool {
	return f.lifetime != nil && f.lifetime.Err() == nil
}

func (f *Fetch[T]) dispatchLocked() {
	f.generation++
	gen := f.generation
	ctx, rawURL, options := f.lifetime, f.url, f.options

	f.state.Loading = true
	f.state.Err = nil
	f.state.Status = StatusLoading
	f.notifyLocked()

	f.inflight.Add(1)
	go func() {
		defer f.inflight.Done()
		data, err := f.fetcher(ctx, rawURL, options)
		f.settle(ctx, gen, data, err)
	}()
}

func (f *Fetch[T]) settle(ctx context.Context, gen uint64, data T, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if f.policy == KeepLatestDispatched && gen != f.generation {
		return
	}

	if err != nil {
		f.state.Err = err
		f.state.Status = StatusError
	} else {
		f.state.Data = data
		f.state.Status = StatusSuccess
	}
	f.state.Loading = false
	f.notifyLocked()
}

func (f *Fetch[T]) notifyLocked() {
	if f.onChange != nil {
		f.onChange(f.state)
	}
}

func requestKey(rawURL string, options map[string]any) string {
	encoded, err := json.Marshal(options)
	if err != nil {
		encoded = []byte(fmt.Sprint(options))
	}
	return rawURL + "\x00" + string(encoded)
}

// HTTPGet fetches through the HTTP facade, sending options as query
// parameters.
func HTTPGet[T any](client *httpapi.Client) Fetcher[T] {
	return func(ctx context.Context, rawURL string, options map[string]any) (T, error) {
		var out T
		err := client.Get(ctx, withQuery(rawURL, options), &out)
		return out, err
	}
}

func withQuery(rawURL string, options map[string]any) string {
	if len(options) == 0 {
		return rawURL
	}

	q := url.Values{}
	for k, v := range options {
		q.Set(k, fmt.Sprint(v))
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + q.Encode()
}
