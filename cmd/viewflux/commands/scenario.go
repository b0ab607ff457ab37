package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/viewflux/viewflux/pkg/config"
	"github.com/viewflux/viewflux/pkg/views"
)

// Sentinel errors for scenario loading and pipeline construction.
var (
	ErrEmptyPipeline   = errors.New("scenario has no pipeline stages")
	ErrUnknownStage    = errors.New("unknown pipeline stage")
	ErrUnknownStageFn  = errors.New("unknown stage function")
	ErrUnknownStepOp   = errors.New("unknown step operation")
	ErrGroupsNeedStage = errors.New("grouped sources require a leading flatten stage")
	ErrGroupOutOfRange = errors.New("step group out of range")
)

// Scenario is a replayable edit session: a source array, a view pipeline
// derived from it, and a sequence of edit steps to feed through.
type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Source      []int   `yaml:"source"`
	Groups      [][]int `yaml:"groups"`
	Pipeline    []Stage `yaml:"pipeline"`
	Steps       []Step  `yaml:"steps"`
}

// Stage is one derived view in the pipeline, applied to the output of the
// stage before it.
type Stage struct {
	// Stage selects the view operator: flatten, filter, map,
	// distinct-sorted, concat, buffer. Flatten is only legal as the first
	// stage of a scenario with grouped sources.
	Stage string `yaml:"stage"`

	// Fn parameterizes filter (even, odd, positive) and map (double,
	// negate, increment) stages.
	Fn string `yaml:"fn,omitempty"`

	// With holds the second operand of a concat stage.
	With []int `yaml:"with,omitempty"`
}

// Step is one edit applied to a source array during replay.
type Step struct {
	// Op is one of begin, end, insert, remove, replace.
	Op string `yaml:"op"`

	// Group targets one inner array of a grouped scenario. Nil targets the
	// flat source.
	Group *int `yaml:"group,omitempty"`

	// At is the source position insert, remove and replace apply to.
	At int `yaml:"at"`

	// Count is how many elements remove and replace take out.
	Count int `yaml:"count,omitempty"`

	// Values are the elements insert and replace put in.
	Values []int `yaml:"values,omitempty"`
}

// LoadScenario reads a scenario file. A bare name without a path separator
// or extension is resolved inside the configured scenario directory.
func LoadScenario(nameOrPath, scenarioDir string) (*Scenario, error) {
	path := nameOrPath
	if !strings.ContainsRune(path, os.PathSeparator) && filepath.Ext(path) == "" {
		path = filepath.Join(scenarioDir, path+".yaml")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario

	err = yaml.Unmarshal(raw, &scenario)
	if err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if len(scenario.Pipeline) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPipeline, path)
	}

	return &scenario, nil
}

// Session holds the mutable roots a replay feeds edits into. Flat scenarios
// use Source; grouped (flatten) scenarios use Inners.
type Session struct {
	Source *views.MutableArray[int]
	Inners []*views.MutableArray[int]
}

// Edit applies one step to the session's targeted array.
func (s *Session) Edit(step Step) error {
	target := s.Source
	if step.Group != nil {
		if *step.Group < 0 || *step.Group >= len(s.Inners) {
			return fmt.Errorf("%w: %d", ErrGroupOutOfRange, *step.Group)
		}

		target = s.Inners[*step.Group]
	}

	switch step.Op {
	case "begin":
		target.Begin()
	case "end":
		target.End()
	case "insert":
		for offset, value := range step.Values {
			target.Insert(value, step.At+offset)
		}
	case "remove":
		count := max(step.Count, 1)
		for range count {
			target.RemoveAt(step.At)
		}
	case "replace":
		count := step.Count
		if count == 0 {
			count = len(step.Values)
		}

		target.ReplaceRange(step.At, step.At+count, step.Values...)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStepOp, step.Op)
	}

	return nil
}

// BuildPipeline derives the scenario's view chain and the session feeding it.
func BuildPipeline(scenario *Scenario, cfg *config.Config) (views.Array[int], *Session, error) {
	session := &Session{}
	stages := scenario.Pipeline

	var current views.Array[int]

	if len(scenario.Groups) > 0 {
		if len(stages) == 0 || stages[0].Stage != "flatten" {
			return nil, nil, fmt.Errorf("%w: %s", ErrGroupsNeedStage, scenario.Name)
		}

		session.Inners = make([]*views.MutableArray[int], len(scenario.Groups))
		for idx, group := range scenario.Groups {
			session.Inners[idx] = views.NewMutableArray(group...)
		}

		outer := views.NewMutableArray(session.Inners...)
		current = views.Flatten[int](outer)
		stages = stages[1:]
	} else {
		session.Source = views.NewMutableArray(scenario.Source...)
		current = session.Source
	}

	for _, stage := range stages {
		next, err := buildStage(current, stage, cfg)
		if err != nil {
			return nil, nil, err
		}

		current = next
	}

	if cfg.Engine.BufferDerived {
		current = views.Buffer(current)
	}

	return current, session, nil
}

func buildStage(source views.Array[int], stage Stage, cfg *config.Config) (views.Array[int], error) {
	switch stage.Stage {
	case "flatten":
		return nil, fmt.Errorf("%w: flatten only leads a grouped scenario", ErrUnknownStage)
	case "filter":
		pred, err := filterFn(stage.Fn)
		if err != nil {
			return nil, err
		}

		view := views.Filter(source, pred)
		view.SetHibernationThreshold(cfg.Engine.HibernationThreshold)

		return view, nil
	case "map":
		fn, err := mapFn(stage.Fn)
		if err != nil {
			return nil, err
		}

		return views.Map(source, fn), nil
	case "distinct-sorted":
		distinct := views.DistinctUnion(source)

		return views.SortValues(distinct, func(v int) int { return v }, func(a, b int) bool { return a < b }), nil
	case "concat":
		return views.Concat(source, views.NewMutableArray(stage.With...)), nil
	case "buffer":
		return views.Buffer(source), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage.Stage)
	}
}

func filterFn(name string) (func(int) bool, error) {
	switch name {
	case "even":
		return func(v int) bool { return v%2 == 0 }, nil
	case "odd":
		return func(v int) bool { return v%2 != 0 }, nil
	case "positive":
		return func(v int) bool { return v > 0 }, nil
	default:
		return nil, fmt.Errorf("%w: filter %q", ErrUnknownStageFn, name)
	}
}

func mapFn(name string) (func(int) int, error) {
	switch name {
	case "double":
		return func(v int) int { return v * 2 }, nil
	case "negate":
		return func(v int) int { return -v }, nil
	case "increment":
		return func(v int) int { return v + 1 }, nil
	default:
		return nil, fmt.Errorf("%w: map %q", ErrUnknownStageFn, name)
	}
}
