package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mondrian-project/mondrian/pkg/config"
)

func TestTopologicalOrder_RespectsDependencies(t *testing.T) {
	processes := []config.ManagedProcessConfig{
		{Name: "api", DependsOn: []string{"model"}},
		{Name: "model", DependsOn: []string{"embeddings"}},
		{Name: "embeddings"},
	}

	ordered, err := topologicalOrder(processes)
	require.NoError(t, err)
	require.Len(t, ordered, 3)

	index := make(map[string]int, len(ordered))
	for i, p := range ordered {
		index[p.Name] = i
	}
	assert.Less(t, index["embeddings"], index["model"])
	assert.Less(t, index["model"], index["api"])
}

func TestTopologicalOrder_DetectsCycle(t *testing.T) {
	processes := []config.ManagedProcessConfig{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	}
	_, err := topologicalOrder(processes)
	require.Error(t, err)
}

func TestTopologicalOrder_UnknownDependency(t *testing.T) {
	processes := []config.ManagedProcessConfig{
		{Name: "a", DependsOn: []string{"ghost"}},
	}
	_, err := topologicalOrder(processes)
	require.Error(t, err)
}
