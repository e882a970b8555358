package startup

import (
	"context"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDep struct {
	name      string
	dependsOn []string
	startErrs int
	started   *[]string
	stopped   *[]string
}

func (d *testDep) GetName() string     { return d.name }
func (d *testDep) DependsOn() []string { return d.dependsOn }

func (d *testDep) Start(ctx context.Context) error {
	if d.startErrs > 0 {
		d.startErrs--
		return fmt.Errorf("%s not ready", d.name)
	}
	*d.started = append(*d.started, d.name)
	return nil
}

func (d *testDep) Stop(ctx context.Context) error {
	*d.stopped = append(*d.stopped, d.name)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartup(t *testing.T) {
	t.Run("should start dependencies before their dependents", func(t *testing.T) {
		started, stopped := []string{}, []string{}
		s := NewStartup(testLogger(), 1)
		s.AddDependency(&testDep{name: "server", dependsOn: []string{"database"}, started: &started, stopped: &stopped})
		s.AddDependency(&testDep{name: "database", started: &started, stopped: &stopped})

		require.NoError(t, s.Start(context.Background()))
		assert.Equal(t, []string{"database", "server"}, started)
	})

	t.Run("should retry failed attempts up to the limit", func(t *testing.T) {
		started, stopped := []string{}, []string{}
		s := NewStartup(testLogger(), 3)
		s.AddDependency(&testDep{name: "database", startErrs: 2, started: &started, stopped: &stopped})

		require.NoError(t, s.Start(context.Background()))
		assert.Equal(t, []string{"database"}, started)
	})

	t.Run("should give up after max attempts", func(t *testing.T) {
		started, stopped := []string{}, []string{}
		s := NewStartup(testLogger(), 2)
		s.AddDependency(&testDep{name: "database", startErrs: 5, started: &started, stopped: &stopped})

		err := s.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "startup failed after 2 attempts")
	})

	t.Run("should fail when a dependency references an unregistered name", func(t *testing.T) {
		started, stopped := []string{}, []string{}
		s := NewStartup(testLogger(), 1)
		s.AddDependency(&testDep{name: "server", dependsOn: []string{"ghost"}, started: &started, stopped: &stopped})

		err := s.Start(context.Background())
		require.Error(t, err)
	})

	t.Run("should stop started dependencies in reverse registration order", func(t *testing.T) {
		started, stopped := []string{}, []string{}
		s := NewStartup(testLogger(), 1)
		s.AddDependency(&testDep{name: "database", started: &started, stopped: &stopped})
		s.AddDependency(&testDep{name: "server", dependsOn: []string{"database"}, started: &started, stopped: &stopped})

		require.NoError(t, s.Start(context.Background()))
		require.NoError(t, s.Stop(context.Background()))
		assert.Equal(t, []string{"server", "database"}, stopped)
	})
}
