// Package domain contains the pure, dependency-free models of the credit
// scoring workflow: datasets, candidates, selection policies and the
// champion selector itself.
package domain

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"
)

// Key is a typed handle for a value stored in State. The type parameter
// makes Get and With type-safe without runtime assertions at call sites.
type Key[T any] struct{ name string }

// NewKey creates a Key with the given name. Use it for keys defined
// outside this package.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the string the key is stored under.
func (k Key[T]) Name() string { return k.name }

// Keys shared by the workflow stages. Each stage reads what earlier stages
// wrote and adds its own outputs.
var (
	// KeyRunID identifies the training run. Candidates are registered and
	// later listed under this ID, so it must be set before training.
	KeyRunID = Key[string]{"run_id"}

	// KeyRawData holds the dataset as ingested, before any cleaning.
	KeyRawData = Key[*Dataset]{"data.raw"}

	// KeyTrainData holds the cleaned training split.
	KeyTrainData = Key[*Dataset]{"data.train"}

	// KeyTestData holds the cleaned, held-out test split.
	KeyTestData = Key[*Dataset]{"data.test"}

	// KeyCandidates holds the candidates produced by training units.
	KeyCandidates = Key[[]Candidate]{"candidates"}

	// KeyDecision holds the full selection trace of the champion choice.
	KeyDecision = Key[*Decision]{"selection.decision"}

	// KeyChampion holds the selected candidate.
	KeyChampion = Key[*Candidate]{"selection.champion"}

	// KeyReport holds the final evaluation report of the champion on the
	// test split.
	KeyReport = Key[*EvaluationReport]{"evaluation.report"}

	// Execution context keys.

	// KeyPipelineID stores the name of the pipeline configuration being run.
	KeyPipelineID = Key[string]{"execution.pipeline_id"}

	// KeyExecutionID stores a unique identifier for this execution.
	KeyExecutionID = Key[string]{"execution.execution_id"}

	// KeyStartedAt stores when the execution began.
	KeyStartedAt = Key[time.Time]{"execution.started_at"}
)

// deepCopyValue returns a copy of value so that slices and maps held in
// State cannot be mutated through values handed out by Get. Nil slices and
// maps stay nil. Pointers are shared: datasets and trained models are
// large and stages treat them as read-only.
func deepCopyValue(value any) any {
	if value == nil {
		return nil
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return value
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyInto(v.Index(i)))
		}
		return out.Interface()

	case reflect.Map:
		if v.IsNil() {
			return value
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(copyInto(iter.Key()), copyInto(iter.Value()))
		}
		return out.Interface()

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			// Structs with unexported state (time.Time and friends) are
			// copied by value only.
			if !out.Field(i).CanSet() {
				return value
			}
			out.Field(i).Set(copyInto(v.Field(i)))
		}
		return out.Interface()

	default:
		return value
	}
}

// copyInto deep copies v and returns a value assignable to v's type, which
// keeps typed nils and interface-typed elements intact.
func copyInto(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
	}
	copied := deepCopyValue(v.Interface())
	if copied == nil {
		return reflect.Zero(v.Type())
	}
	return reflect.ValueOf(copied)
}

// State is the immutable bag of values that flows between workflow stages.
// Every update returns a new State (copy-on-write), so one State may be
// handed to several stages running in parallel.
type State struct {
	data map[string]any
}

// NewState creates an empty State.
func NewState() State {
	return State{data: make(map[string]any)}
}

// Get returns a deep copy of the value stored under key, and whether a
// value of the right type was present.
//
// Example:
//
//	train, ok := Get(state, KeyTrainData)
//	if !ok {
//	    // the preprocess stage has not run
//	}
func Get[T any](s State, key Key[T]) (T, bool) {
	var zero T
	value, exists := s.data[key.name]
	if !exists {
		return zero, false
	}

	val, ok := deepCopyValue(value).(T)
	return val, ok
}

// GetRaw looks a value up by its string key. Prefer Get.
func (s State) GetRaw(keyName string) (any, bool) {
	value, exists := s.data[keyName]
	if !exists {
		return nil, false
	}
	return deepCopyValue(value), true
}

// With returns a new State with key set to value. The receiver is left
// unchanged.
func With[T any](s State, key Key[T], value T) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any)
	}
	newData[key.name] = deepCopyValue(value)
	return State{data: newData}
}

// WithRaw is the string-keyed form of With.
func (s State) WithRaw(keyName string, value any) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any)
	}
	newData[keyName] = deepCopyValue(value)
	return State{data: newData}
}

// WithMultiple sets several string-keyed values with a single clone.
func (s State) WithMultiple(updates map[string]any) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any, len(updates))
	}
	for k, v := range updates {
		newData[k] = deepCopyValue(v)
	}
	return State{data: newData}
}

// Has reports whether keyName is present.
func (s State) Has(keyName string) bool {
	_, ok := s.data[keyName]
	return ok
}

// Keys returns the stored key names in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// String returns a representation of the State for debugging.
func (s State) String() string {
	return fmt.Sprintf("State%v", s.Keys())
}

// ExecutionContext is the metadata attached to a State at the start of a
// pipeline execution.
type ExecutionContext struct {
	// PipelineID is the name of the pipeline configuration.
	PipelineID string

	// ExecutionID uniquely identifies this execution.
	ExecutionID string

	// RunID is the training run that candidates are registered under.
	RunID string

	// StartedAt is when execution began.
	StartedAt time.Time
}

// WithExecutionContext returns a State carrying the execution metadata.
func (s State) WithExecutionContext(ctx ExecutionContext) State {
	return s.WithMultiple(map[string]any{
		KeyPipelineID.name:  ctx.PipelineID,
		KeyExecutionID.name: ctx.ExecutionID,
		KeyRunID.name:       ctx.RunID,
		KeyStartedAt.name:   ctx.StartedAt,
	})
}

// GetExecutionContext extracts the execution metadata. The boolean is false
// when any of the identifiers is missing.
func (s State) GetExecutionContext() (ExecutionContext, bool) {
	pipelineID, ok1 := Get(s, KeyPipelineID)
	executionID, ok2 := Get(s, KeyExecutionID)
	runID, ok3 := Get(s, KeyRunID)
	startedAt, _ := Get(s, KeyStartedAt)

	if !ok1 || !ok2 || !ok3 {
		return ExecutionContext{}, false
	}

	return ExecutionContext{
		PipelineID:  pipelineID,
		ExecutionID: executionID,
		RunID:       runID,
		StartedAt:   startedAt,
	}, true
}
