package form

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smoothie-orders/internal/fruit"
	"smoothie-orders/internal/nutrition"
	"smoothie-orders/internal/order"

	"go.uber.org/zap"
)

// Action is what triggered a render.
type Action int

const (
	ActionView Action = iota
	ActionSubmit
)

// Lookup outcomes passed to Recorder.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeBadShape = "bad_shape"
	OutcomeError    = "error"
)

// FruitLister loads the selectable fruit options.
type FruitLister interface {
	List(ctx context.Context) ([]fruit.Option, error)
}

// OrderInserter stores a validated order.
type OrderInserter interface {
	Insert(ctx context.Context, req order.Request) (order.Order, error)
}

// Recorder receives lookup and order events.
type Recorder interface {
	RecordLookup(fruitName, key, outcome string, latency time.Duration)
	RecordOrder()
}

type nopRecorder struct{}

func (nopRecorder) RecordLookup(string, string, string, time.Duration) {}
func (nopRecorder) RecordOrder()                                       {}

// Service renders the order form against the database and the nutrition API.
type Service struct {
	fruits   FruitLister
	orders   OrderInserter
	lookups  nutrition.Client
	policy   fruit.Policy
	recorder Recorder
	showSQL  bool
	logger   *zap.Logger
}

// NewService creates a new Service. A nil recorder or logger is replaced by a no-op.
func NewService(
	fruits FruitLister,
	orders OrderInserter,
	lookups nutrition.Client,
	policy fruit.Policy,
	recorder Recorder,
	showSQL bool,
	logger *zap.Logger,
) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fruits:   fruits,
		orders:   orders,
		lookups:  lookups,
		policy:   policy,
		recorder: recorder,
		showSQL:  showSQL,
		logger:   logger,
	}
}

// Render runs one pass of the form: load options, apply the action, and
// fetch nutrition facts for the selection. st is updated in place (stale
// selections are dropped; a successful submit resets it).
func (s *Service) Render(ctx context.Context, st *State, act Action) *View {
	v := &View{
		Title:         Title,
		Intro:         Intro,
		MaxSelections: order.MaxIngredients,
	}

	options, err := s.fruits.List(ctx)
	if err != nil {
		s.logger.Error("failed to load fruit options", zap.Error(err))
		v.addBanner(BannerError, fmt.Sprintf("Could not load fruit options: %v", err))
		v.Halted = true
		v.Name = st.Name
		return v
	}

	byName := make(map[string]fruit.Option, len(options))
	for _, opt := range options {
		byName[opt.Name] = opt
	}
	s.pruneSelection(st, byName, v)

	if act == ActionSubmit {
		s.submit(ctx, st, v)
	}

	v.Name = st.Name
	v.Selected = append([]string(nil), st.Selected...)
	v.ShowNutrition = st.ShowNutrition
	full := len(st.Selected) >= order.MaxIngredients
	for _, opt := range options {
		selected := st.IsSelected(opt.Name)
		v.Options = append(v.Options, OptionView{
			Name:     opt.Name,
			Selected: selected,
			Disabled: full && !selected,
		})
	}

	hasName := st.Name != ""
	hasIngredients := len(st.Selected) > 0
	v.CanSubmit = hasName && hasIngredients
	if act != ActionSubmit {
		switch {
		case hasName && !hasIngredients:
			v.addBanner(BannerInfo, PromptIngredients)
		case hasIngredients && !hasName:
			v.addBanner(BannerInfo, PromptName)
		}
	}

	if s.showSQL && v.CanSubmit {
		v.Statement = order.PreviewStatement(order.Request{Name: st.Name, Ingredients: st.Selected})
	}

	if st.ShowNutrition {
		for _, name := range st.Selected {
			s.lookupFruit(ctx, byName[name], v)
		}
	}
	return v
}

func (s *Service) pruneSelection(st *State, byName map[string]fruit.Option, v *View) {
	kept := st.Selected[:0:0]
	for _, name := range st.Selected {
		if _, ok := byName[name]; ok {
			kept = append(kept, name)
			continue
		}
		v.addBanner(BannerWarning, fmt.Sprintf("%s is no longer available and was removed from your selection.", name))
	}
	st.Selected = kept
}

// submit validates and inserts the order, resetting st on success.
func (s *Service) submit(ctx context.Context, st *State, v *View) {
	req := order.Request{Name: st.Name, Ingredients: st.Selected}
	if err := req.Validate(); err != nil {
		if errors.Is(err, order.ErrMissingName) {
			v.addBanner(BannerInfo, PromptName)
		}
		if errors.Is(err, order.ErrNoIngredients) {
			v.addBanner(BannerInfo, PromptIngredients)
		}
		if errors.Is(err, order.ErrTooManyIngredients) {
			v.addBanner(BannerWarning, ErrSelectionLimit.Error())
		}
		return
	}

	o, err := s.orders.Insert(ctx, req)
	if err != nil {
		s.logger.Error("failed to insert order", zap.String("name", req.Name), zap.Error(err))
		v.addBanner(BannerError, fmt.Sprintf("Your order could not be placed: %v", err))
		return
	}

	s.logger.Info("order placed",
		zap.Int64("order_uid", o.ID),
		zap.String("name", o.NameOnOrder),
		zap.String("ingredients", o.Ingredients))
	s.recorder.RecordOrder()
	v.addBanner(BannerSuccess, fmt.Sprintf("✅ Your Smoothie is ordered, %s!", o.NameOnOrder))
	st.Reset()
}

// lookupFruit fetches facts for one fruit; failures only add a warning for that fruit.
func (s *Service) lookupFruit(ctx context.Context, opt fruit.Option, v *View) {
	key := s.policy.Key(opt)
	start := time.Now()
	facts, err := s.lookups.Lookup(ctx, key)
	latency := time.Since(start)

	if err != nil {
		outcome := OutcomeError
		reason := "the nutrition service did not answer"
		var statusErr *nutrition.StatusError
		switch {
		case errors.As(err, &statusErr):
			reason = fmt.Sprintf("the nutrition service answered with status %d", statusErr.Code)
		case errors.Is(err, nutrition.ErrNotFound):
			outcome = OutcomeNotFound
			reason = fmt.Sprintf("no entry for %q", key)
		case errors.Is(err, nutrition.ErrUnexpectedShape):
			outcome = OutcomeBadShape
			reason = "the response was not understood"
		}
		s.recorder.RecordLookup(opt.Name, key, outcome, latency)
		s.logger.Warn("nutrition lookup failed",
			zap.String("fruit", opt.Name),
			zap.String("key", key),
			zap.Error(err))
		v.addBanner(BannerWarning, fmt.Sprintf("Nutrition information for %s is unavailable: %s.", opt.Name, reason))
		return
	}

	s.recorder.RecordLookup(opt.Name, key, OutcomeOK, latency)
	v.Nutrition = append(v.Nutrition, NutritionTable{Fruit: opt.Name, Key: key, Rows: facts.Rows})
}
