package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/viant/structology/conv"

	"github.com/jobflowhq/jobflow/extension"
	"github.com/jobflowhq/jobflow/model"
	"github.com/jobflowhq/jobflow/model/types"
	"github.com/jobflowhq/jobflow/policy"
	"github.com/jobflowhq/jobflow/runtime/expander"
	"github.com/jobflowhq/jobflow/tracing"
)

// Listener is invoked once a step action completes (regardless of whether it
// returned an error or not). Implementations can log, collect metrics or
// perform any other side-effects they require.
//
// For convenience the listener is defined as a function type rather than an
// interface; users can therefore pass a plain function literal when
// customising the executor.
type Listener func(step *model.Step, input, output interface{})

// StdoutListener serialises the step, its input and its output into JSON and
// prints them to standard output. Errors from json.Marshal are ignored on
// purpose – they indicate non-serialisable values the caller could not have
// inspected either way.
func StdoutListener(step *model.Step, input, output interface{}) {
	if step == nil {
		return
	}
	data, _ := json.Marshal(step)
	fmt.Println(string(data))
	if input != nil {
		in, _ := json.Marshal(input)
		fmt.Println(string(in))
	}
	if output != nil {
		out, _ := json.Marshal(output)
		fmt.Println(string(out))
	}
}

// Option is used to customise the executor instance.
type Option func(*service)

// WithListener overrides the listener invoked after every executed step.
// Passing nil disables the callback entirely.
func WithListener(l Listener) Option {
	return func(s *service) {
		s.listener = l
	}
}

// WithTimeout caps how long a single step method may run. Zero or negative
// disables the cap.
func WithTimeout(timeout time.Duration) Option {
	return func(s *service) {
		s.timeout = timeout
	}
}

// Service represents a step executor.
type Service interface {
	Execute(ctx context.Context, step *model.Step, state map[string]interface{}) (interface{}, error)
}

// service is the concrete implementation of Service.
type service struct {
	actions   *extension.Actions
	converter *conv.Converter
	listener  Listener
	timeout   time.Duration
}

var _ Service = (*service)(nil)

// Execute runs the step's action against the given state and returns the
// method output on success. State is read-only here; merging the output back
// is the caller's concern.
func (s *service) Execute(ctx context.Context, step *model.Step, state map[string]interface{}) (interface{}, error) {
	ctx, span := tracing.StartSpan(ctx, "executor.execute", "INTERNAL")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if step == nil || step.Action == nil {
		err = newStepError(stepName(step), KindInvalidInput, errors.New("step has no action"))
		return nil, err
	}
	span.SetAttribute("step", step.Name)
	action := step.Action

	stepService := s.actions.Lookup(action.Service)
	if stepService == nil {
		err = newStepError(step.Name, KindNotFound, types.NewServiceNotFoundError(action.Service))
		return nil, err
	}
	if action.Method == "" {
		err = newStepError(step.Name, KindNotFound, types.NewMethodNotFoundError(""))
		return nil, err
	}
	method, methodErr := stepService.Method(action.Method)
	if methodErr != nil {
		err = newStepError(step.Name, KindNotFound, methodErr)
		return nil, err
	}
	signature := stepService.Methods().Lookup(action.Method)
	if signature == nil {
		err = newStepError(step.Name, KindNotFound, types.NewMethodNotFoundError(action.Method))
		return nil, err
	}

	expanded := expander.ExpandMap(action.Input, state)
	if expanded == nil {
		expanded = map[string]interface{}{}
	}
	if err = s.checkPolicy(ctx, step, expanded); err != nil {
		return nil, err
	}
	input, inputErr := s.typedInput(action, signature, expanded)
	if inputErr != nil {
		err = newStepError(step.Name, KindInvalidInput, inputErr)
		return nil, err
	}
	output := newInstancePtr(signature.Output)

	if err = s.invoke(ctx, step, method, input, output); err != nil {
		return nil, err
	}
	if s.listener != nil {
		s.listener(step, input, output)
	}
	return output, nil
}

// checkPolicy consults the run's execution policy, if any was attached to the
// context. The expanded input is passed to the ask callback so an interactive
// policy can show the operator what the step is about to do.
func (s *service) checkPolicy(ctx context.Context, step *model.Step, expanded map[string]interface{}) error {
	aPolicy := policy.FromContext(ctx)
	if aPolicy == nil {
		return nil
	}
	action := step.Action.Service + "." + step.Action.Method
	if !aPolicy.IsAllowed(action) {
		return newStepError(step.Name, KindDenied, fmt.Errorf("action %v blocked by policy", action))
	}
	switch aPolicy.Mode {
	case policy.ModeDeny:
		return newStepError(step.Name, KindDenied, fmt.Errorf("action %v denied by policy", action))
	case policy.ModeAsk:
		if aPolicy.Ask == nil || !aPolicy.Ask(ctx, action, expanded, aPolicy) {
			return newStepError(step.Name, KindDenied, fmt.Errorf("action %v rejected by policy", action))
		}
	}
	return nil
}

// invoke runs the method in its own goroutine so a stuck step cannot wedge
// the run past its deadline. The goroutine is left to finish on its own when
// the deadline wins; input and output are not reused after a timeout.
func (s *service) invoke(ctx context.Context, step *model.Step, method types.Executable, input, output interface{}) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	done := make(chan error, 1)
	go func() {
		done <- method(ctx, input, output)
	}()
	select {
	case err := <-done:
		if err != nil {
			return newStepError(step.Name, KindFailure, err)
		}
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return newStepError(step.Name, KindTimeout, ctx.Err())
		}
		return newStepError(step.Name, KindFailure, ctx.Err())
	}
}

func (s *service) typedInput(action *model.Action, signature *types.Signature, expanded map[string]interface{}) (interface{}, error) {
	value := interface{}(expanded)
	if action.InputType != "" {
		aType := s.actions.Types().Lookup(action.InputType)
		if aType == nil {
			return nil, fmt.Errorf("type %v not registered", action.InputType)
		}
		typed, err := s.typedValue(aType.Type, value)
		if err != nil {
			return nil, err
		}
		value = typed
	}
	if signature.Input == nil {
		return value, nil
	}
	return s.typedValue(signature.Input, value)
}

func (s *service) typedValue(aType reflect.Type, value interface{}) (interface{}, error) {
	instance := newInstancePtr(aType)
	err := s.converter.Convert(value, instance)
	if aType.Kind() == reflect.Slice {
		instance = reflect.ValueOf(instance).Elem().Interface()
	}
	return instance, err
}

func newInstancePtr(t reflect.Type) interface{} {
	if t == nil {
		return &map[string]interface{}{}
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return reflect.New(t).Interface()
}

func stepName(step *model.Step) string {
	if step == nil {
		return ""
	}
	return step.Name
}

// NewService creates a new executor service instance.
func NewService(actions *extension.Actions, opts ...Option) Service {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true

	s := &service{
		actions:   actions,
		converter: conv.NewConverter(options),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
