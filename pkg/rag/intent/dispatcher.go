package intent

import (
	"context"
	"errors"
	"fmt"

	"owlynn-be/pkg/rag/state"
	"owlynn-be/pkg/store"
)

var ErrNoUserMessage = errors.New("no user message to classify")

// Handler processes a state at a leaf and returns the update to merge.
type Handler func(ctx context.Context, s *state.ConversationState) (state.Update, error)

// Dispatcher runs exactly one process_input -> leaf pass per call.
type Dispatcher struct {
	handlers map[Label]Handler
}

// NewDispatcher returns a dispatcher with the default leaf handlers
// registered. Callers may replace any of them with Handle.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{handlers: make(map[Label]Handler)}
	for _, l := range []Label{LabelChat, LabelFileUpload, LabelDocumentSearch, LabelSettings} {
		d.handlers[l] = DefaultHandler(l)
	}
	d.handlers[LabelErrorHandling] = ErrorHandler
	return d
}

func (d *Dispatcher) Handle(label Label, h Handler) {
	d.handlers[label] = h
}

// Run classifies the last user message, records the label, runs the leaf
// handler and merges its update. A failing handler routes the state to
// error_handling with the error text recorded.
func (d *Dispatcher) Run(ctx context.Context, s *state.ConversationState) error {
	label, err := d.processInput(s)
	if err != nil {
		s.Apply(state.Update{CurrentIntent: state.Ptr(LabelErrorHandling), Error: state.Ptr(err.Error())})
		return d.runLeaf(ctx, LabelErrorHandling, s)
	}

	s.Apply(state.Update{
		CurrentIntent: state.Ptr(label),
		Metadata:      store.Metadata{store.MetaIntent: label},
	})

	if err := d.runLeaf(ctx, label, s); err != nil {
		s.Apply(state.Update{CurrentIntent: state.Ptr(LabelErrorHandling), Error: state.Ptr(err.Error())})
		return d.runLeaf(ctx, LabelErrorHandling, s)
	}
	return nil
}

func (d *Dispatcher) processInput(s *state.ConversationState) (Label, error) {
	msg, ok := s.LastUserMessage()
	if !ok {
		return "", ErrNoUserMessage
	}
	return Classify(msg.Content), nil
}

func (d *Dispatcher) runLeaf(ctx context.Context, label Label, s *state.ConversationState) error {
	h, ok := d.handlers[label]
	if !ok {
		return fmt.Errorf("no handler registered for %q", label)
	}
	u, err := h(ctx, s)
	if err != nil {
		return err
	}
	s.Apply(u)
	return nil
}

// DefaultHandler acknowledges the leaf and resets the label to idle.
func DefaultHandler(label Label) Handler {
	return func(ctx context.Context, s *state.ConversationState) (state.Update, error) {
		return state.Update{
			CurrentIntent: state.Ptr(LabelIdle),
			Context:       store.Metadata{store.MetaHandledBy: label},
		}, nil
	}
}

// ErrorHandler resets the label to idle and keeps the recorded error.
func ErrorHandler(ctx context.Context, s *state.ConversationState) (state.Update, error) {
	return state.Update{
		CurrentIntent: state.Ptr(LabelIdle),
		Context:       store.Metadata{store.MetaHandledBy: LabelErrorHandling},
	}, nil
}
