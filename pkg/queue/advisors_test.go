package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mondrian-project/mondrian/pkg/config"
	"github.com/mondrian-project/mondrian/pkg/models"
)

func testRegistry() *config.AdvisorRegistry {
	return config.NewAdvisorRegistry(map[string]*config.AdvisorConfig{
		"ansel":   {DisplayName: "Ansel", PromptBody: "be dramatic"},
		"dorothea": {DisplayName: "Dorothea", PromptBody: "be documentary"},
	})
}

func TestResolveAdvisors_All(t *testing.T) {
	advisors, err := resolveAdvisors(testRegistry(), "all")
	require.NoError(t, err)
	require.Len(t, advisors, 2)
	assert.Equal(t, "ansel", advisors[0].ID)
	assert.Equal(t, "dorothea", advisors[1].ID)
}

func TestResolveAdvisors_CommaList(t *testing.T) {
	advisors, err := resolveAdvisors(testRegistry(), "dorothea, ansel")
	require.NoError(t, err)
	require.Len(t, advisors, 2)
	assert.Equal(t, "dorothea", advisors[0].ID)
	assert.Equal(t, "ansel", advisors[1].ID)
}

func TestResolveAdvisors_Single(t *testing.T) {
	advisors, err := resolveAdvisors(testRegistry(), "ansel")
	require.NoError(t, err)
	require.Len(t, advisors, 1)
	assert.Equal(t, "Ansel", advisors[0].DisplayName)
}

func TestResolveAdvisors_Random(t *testing.T) {
	advisors, err := resolveAdvisors(testRegistry(), "random")
	require.NoError(t, err)
	require.Len(t, advisors, 1)
}

func TestResolveAdvisors_UnknownID(t *testing.T) {
	_, err := resolveAdvisors(testRegistry(), "nobody")
	require.Error(t, err)
}

func TestStepLabel_UsesKnownVerb(t *testing.T) {
	advisor := &models.Advisor{ID: "ansel", DisplayName: "Ansel"}
	label := stepLabel(advisor)

	found := false
	for _, verb := range stepVerbs {
		if label == verb+" Ansel" {
			found = true
			break
		}
	}
	assert.True(t, found, "label %q did not match any known verb", label)
}
