package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"todo/internal/logging"
	"todo/internal/service"
)

var (
	// ErrEmptyDescription is returned by Create for blank text.
	ErrEmptyDescription = errors.New(EmptyDescription)

	// ErrTranslationDisabled is returned by translate actions without a translator.
	ErrTranslationDisabled = errors.New("translation disabled")
)

// Kind says how a Result changes the board.
type Kind int

const (
	KindNone Kind = iota
	KindLoaded
	KindUpserted
	KindRemoved
	KindCategory
	KindTranslated
	KindSession
)

// Result is the outcome of an action, applied with [State.Apply].
type Result struct {
	Kind Kind
	Op   string

	Tasks    []service.Task
	Removed  []string
	Category service.Category
	Session  *service.Session

	// TranslatedIDs and Translations are aligned.
	TranslatedIDs []string
	Translations  []string

	Err error
}

// Message returns the user-visible text for a failed result.
func (r Result) Message() string {
	switch {
	case r.Err == nil:
		return ""
	case errors.Is(r.Err, ErrEmptyDescription):
		return EmptyDescription
	case r.Kind == KindTranslated && !errors.Is(r.Err, ErrTranslationDisabled):
		return TranslationFailed
	}
	return fmt.Sprintf("%s failed: %v", r.Op, r.Err)
}

// Action is a user intent executed by an Engine.
type Action interface {
	run(ctx context.Context, e *Engine) Result
}

// Load fetches every task.
type Load struct{}

// Create adds a task to a category.
type Create struct {
	Description string
	Category    service.Category
}

// Toggle inverts the completed flag of a task. Completed is the currently rendered state.
type Toggle struct {
	ID        string
	Completed bool
}

// Edit replaces a task description.
type Edit struct {
	ID          string
	Description string
}

// Delete removes one task.
type Delete struct {
	ID string
}

// Clear removes every task in IDs, one request each.
type Clear struct {
	IDs []string
}

// SwitchCategory changes the visible category. No backend call.
type SwitchCategory struct {
	Category service.Category
}

// Translate translates one task's text.
type Translate struct {
	ID   string
	Text string
	Lang string
}

// TranslateAll translates the given texts in one batch. IDs and Texts are aligned.
type TranslateAll struct {
	IDs   []string
	Texts []string
	Lang  string
}

// Engine executes actions against a backend. It never touches a State, so
// actions may run on any goroutine.
type Engine struct {
	svc     service.Service
	tr      service.Translator
	limiter *rate.Limiter
	logger  *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTranslator enables translate actions.
func WithTranslator(tr service.Translator) Option {
	return func(e *Engine) { e.tr = tr }
}

// WithDeleteRate paces Clear to perSecond requests.
func WithDeleteRate(perSecond float64) Option {
	return func(e *Engine) {
		if perSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine over svc.
func NewEngine(svc service.Service, opts ...Option) *Engine {
	e := &Engine{
		svc:     svc,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CanTranslate reports whether a translator is configured.
func (e *Engine) CanTranslate() bool {
	return e.tr != nil
}

// Do executes a and returns its result without applying it.
func (e *Engine) Do(ctx context.Context, a Action) Result {
	r := a.run(ctx, e)
	if r.Err != nil {
		e.logger.Debug("action failed", "op", r.Op, "err", r.Err)
	}
	return r
}

// Run executes a and applies the result to s.
func (e *Engine) Run(ctx context.Context, s *State, a Action) Result {
	r := e.Do(ctx, a)
	s.Apply(r)
	return r
}

func (Load) run(ctx context.Context, e *Engine) Result {
	tasks, err := e.svc.ListTasks(ctx)
	return Result{Kind: KindLoaded, Op: "load", Tasks: tasks, Err: err}
}

func (a Create) run(ctx context.Context, e *Engine) Result {
	r := Result{Kind: KindUpserted, Op: "create"}
	if strings.TrimSpace(a.Description) == "" {
		r.Err = ErrEmptyDescription
		return r
	}
	t, err := e.svc.CreateTask(ctx, a.Description, a.Category)
	if err != nil {
		r.Err = err
		return r
	}
	r.Tasks = []service.Task{t}
	return r
}

func (a Toggle) run(ctx context.Context, e *Engine) Result {
	completed := !a.Completed
	t, err := e.svc.UpdateTask(ctx, a.ID, service.TaskPatch{Completed: &completed})
	if err != nil {
		return Result{Kind: KindUpserted, Op: "update", Err: err}
	}
	return Result{Kind: KindUpserted, Op: "update", Tasks: []service.Task{t}}
}

func (a Edit) run(ctx context.Context, e *Engine) Result {
	r := Result{Kind: KindUpserted, Op: "update"}
	if strings.TrimSpace(a.Description) == "" {
		r.Err = ErrEmptyDescription
		return r
	}
	desc := a.Description
	t, err := e.svc.UpdateTask(ctx, a.ID, service.TaskPatch{Description: &desc})
	if err != nil {
		r.Err = err
		return r
	}
	r.Tasks = []service.Task{t}
	return r
}

func (a Delete) run(ctx context.Context, e *Engine) Result {
	if err := e.svc.DeleteTask(ctx, a.ID); err != nil {
		return Result{Kind: KindRemoved, Op: "delete", Err: err}
	}
	return Result{Kind: KindRemoved, Op: "delete", Removed: []string{a.ID}}
}

func (a Clear) run(ctx context.Context, e *Engine) Result {
	r := Result{Kind: KindRemoved, Op: "delete"}
	var errs []error
	for _, id := range a.IDs {
		if err := e.limiter.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		if err := e.svc.DeleteTask(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		r.Removed = append(r.Removed, id)
	}
	r.Err = errors.Join(errs...)
	return r
}

func (a SwitchCategory) run(ctx context.Context, e *Engine) Result {
	return Result{Kind: KindCategory, Op: "switch", Category: a.Category}
}

func (a Translate) run(ctx context.Context, e *Engine) Result {
	r := Result{Kind: KindTranslated, Op: "translate", TranslatedIDs: []string{a.ID}}
	if e.tr == nil {
		r.Err = ErrTranslationDisabled
		r.TranslatedIDs = nil
		return r
	}
	text, err := e.tr.Translate(ctx, a.Text, a.Lang)
	if err == nil && text == "" {
		err = service.ErrMalformed
	}
	if err != nil {
		r.Translations = []string{TranslationFailed}
		r.Err = err
		return r
	}
	r.Translations = []string{text}
	return r
}

func (a TranslateAll) run(ctx context.Context, e *Engine) Result {
	r := Result{Kind: KindTranslated, Op: "translate", TranslatedIDs: a.IDs}
	if e.tr == nil {
		r.Err = ErrTranslationDisabled
		r.TranslatedIDs = nil
		return r
	}
	r.Translations = make([]string, len(a.IDs))
	if len(a.IDs) == 0 {
		return r
	}

	texts, err := e.tr.TranslateBatch(ctx, a.Texts, a.Lang)
	for i := range a.IDs {
		if err == nil && i < len(texts) && texts[i] != "" {
			r.Translations[i] = texts[i]
		} else {
			r.Translations[i] = TranslationFailed
		}
	}
	r.Err = err
	return r
}
