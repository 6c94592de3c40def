package queue

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/mondrian-project/mondrian/pkg/config"
	"github.com/mondrian-project/mondrian/pkg/models"
)

// ValidateAdvisorToken reports whether token is a resolvable advisor
// selector (single id, comma list, `all`, or `random`) against registry,
// resolving it as a job would and discarding the result. Used by the API layer to
// reject an unknown advisor at upload time rather than after a job has
// already been queued.
func ValidateAdvisorToken(registry *config.AdvisorRegistry, token string) error {
	_, err := resolveAdvisors(registry, token)
	return err
}

// resolveAdvisors expands the `advisor` form field into the ordered list
// of advisors a job must run (spec.md §4.D step 3: "the input may specify
// one, a comma list, `all`, or `random`"). `all` is expanded in the
// registry's stable sorted order; a comma list keeps the order given;
// `random` picks one advisor uniformly at random.
func resolveAdvisors(registry *config.AdvisorRegistry, token string) ([]*models.Advisor, error) {
	switch token {
	case "all":
		ids := registry.Order()
		out := make([]*models.Advisor, 0, len(ids))
		for _, id := range ids {
			adv, err := advisorFromRegistry(registry, id)
			if err != nil {
				return nil, err
			}
			out = append(out, adv)
		}
		return out, nil
	case "random":
		ids := registry.Order()
		if len(ids) == 0 {
			return nil, fmt.Errorf("no advisors configured")
		}
		adv, err := advisorFromRegistry(registry, ids[rand.IntN(len(ids))])
		if err != nil {
			return nil, err
		}
		return []*models.Advisor{adv}, nil
	default:
		ids := strings.Split(token, ",")
		out := make([]*models.Advisor, 0, len(ids))
		for _, id := range ids {
			adv, err := advisorFromRegistry(registry, strings.TrimSpace(id))
			if err != nil {
				return nil, err
			}
			out = append(out, adv)
		}
		return out, nil
	}
}

func advisorFromRegistry(registry *config.AdvisorRegistry, id string) (*models.Advisor, error) {
	cfg, err := registry.Get(id)
	if err != nil {
		return nil, err
	}
	return &models.Advisor{
		ID:            id,
		DisplayName:   cfg.DisplayName,
		Biography:     cfg.Biography,
		PromptBody:    cfg.PromptBody,
		FocusAreas:    cfg.FocusAreas,
		AdapterHandle: cfg.AdapterHandle,
		Category:      cfg.Category,
	}, nil
}

// stepVerbs are the whimsical verbs spec.md §6 requires, chosen uniformly
// at random per advisor. The specific set is observable client-side copy
// and must match exactly.
var stepVerbs = []string{"Conjuring", "Summoning", "Beckoning", "Invoking", "Calling forth", "Manifesting"}

// stepLabel builds the `<verb> <Advisor Display Name>` current_step string
// (spec.md §6 "Whimsical step labels").
func stepLabel(advisor *models.Advisor) string {
	return stepVerbs[rand.IntN(len(stepVerbs))] + " " + advisor.DisplayName
}
