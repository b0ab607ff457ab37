package commands_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewflux/viewflux/cmd/viewflux/commands"
	"github.com/viewflux/viewflux/pkg/config"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func defaultTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	return cfg
}

func TestLoadScenarioByName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeScenario(t, dir, "even.yaml", `
name: even
source: [1, 2, 3]
pipeline:
  - stage: filter
    fn: even
`)

	scenario, err := commands.LoadScenario("even", dir)
	require.NoError(t, err)

	assert.Equal(t, "even", scenario.Name)
	assert.Equal(t, []int{1, 2, 3}, scenario.Source)
	require.Len(t, scenario.Pipeline, 1)
	assert.Equal(t, "filter", scenario.Pipeline[0].Stage)
}

func TestLoadScenarioEmptyPipeline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeScenario(t, dir, "bare.yaml", "name: bare\nsource: [1]\n")

	_, err := commands.LoadScenario(path, dir)
	require.ErrorIs(t, err, commands.ErrEmptyPipeline)
}

func TestBuildPipelineFilterMap(t *testing.T) {
	t.Parallel()

	scenario := &commands.Scenario{
		Source: []int{1, 2, 3, 4, 5},
		Pipeline: []commands.Stage{
			{Stage: "filter", Fn: "even"},
			{Stage: "map", Fn: "double"},
		},
	}

	pipeline, _, err := commands.BuildPipeline(scenario, defaultTestConfig(t))
	require.NoError(t, err)

	assert.Equal(t, []int{4, 8}, pipeline.Snapshot())
}

func TestBuildPipelineDistinctSorted(t *testing.T) {
	t.Parallel()

	scenario := &commands.Scenario{
		Source:   []int{3, 1, 2, 3, 1},
		Pipeline: []commands.Stage{{Stage: "distinct-sorted"}},
	}

	pipeline, _, err := commands.BuildPipeline(scenario, defaultTestConfig(t))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, pipeline.Snapshot())
}

func TestBuildPipelineConcat(t *testing.T) {
	t.Parallel()

	scenario := &commands.Scenario{
		Source:   []int{1, 2},
		Pipeline: []commands.Stage{{Stage: "concat", With: []int{3, 4}}},
	}

	pipeline, _, err := commands.BuildPipeline(scenario, defaultTestConfig(t))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4}, pipeline.Snapshot())
}

func TestBuildPipelineFlattenGroups(t *testing.T) {
	t.Parallel()

	scenario := &commands.Scenario{
		Groups:   [][]int{{1, 2}, {3}, {4, 5, 6}},
		Pipeline: []commands.Stage{{Stage: "flatten"}},
	}

	pipeline, session, err := commands.BuildPipeline(scenario, defaultTestConfig(t))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, pipeline.Snapshot())

	group := 1
	require.NoError(t, session.Edit(commands.Step{Op: "insert", Group: &group, At: 1, Values: []int{99}}))
	assert.Equal(t, []int{1, 2, 3, 99, 4, 5, 6}, pipeline.Snapshot())
}

func TestBuildPipelineGroupsWithoutFlatten(t *testing.T) {
	t.Parallel()

	scenario := &commands.Scenario{
		Groups:   [][]int{{1}},
		Pipeline: []commands.Stage{{Stage: "filter", Fn: "even"}},
	}

	_, _, err := commands.BuildPipeline(scenario, defaultTestConfig(t))
	require.ErrorIs(t, err, commands.ErrGroupsNeedStage)
}

func TestBuildPipelineBufferDerived(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig(t)
	cfg.Engine.BufferDerived = true

	scenario := &commands.Scenario{
		Source:   []int{1, 2, 3},
		Pipeline: []commands.Stage{{Stage: "filter", Fn: "odd"}},
	}

	pipeline, _, err := commands.BuildPipeline(scenario, cfg)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, pipeline.Snapshot())
}

func TestBuildPipelineUnknownStage(t *testing.T) {
	t.Parallel()

	scenario := &commands.Scenario{
		Source:   []int{1},
		Pipeline: []commands.Stage{{Stage: "transmogrify"}},
	}

	_, _, err := commands.BuildPipeline(scenario, defaultTestConfig(t))
	require.ErrorIs(t, err, commands.ErrUnknownStage)
}

func TestBuildPipelineUnknownFn(t *testing.T) {
	t.Parallel()

	scenario := &commands.Scenario{
		Source:   []int{1},
		Pipeline: []commands.Stage{{Stage: "filter", Fn: "prime"}},
	}

	_, _, err := commands.BuildPipeline(scenario, defaultTestConfig(t))
	require.ErrorIs(t, err, commands.ErrUnknownStageFn)
}

func TestSessionEditGroupOutOfRange(t *testing.T) {
	t.Parallel()

	scenario := &commands.Scenario{
		Groups:   [][]int{{1}},
		Pipeline: []commands.Stage{{Stage: "flatten"}},
	}

	_, session, err := commands.BuildPipeline(scenario, defaultTestConfig(t))
	require.NoError(t, err)

	group := 5
	require.ErrorIs(t,
		session.Edit(commands.Step{Op: "remove", Group: &group}),
		commands.ErrGroupOutOfRange)
}
