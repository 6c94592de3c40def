package config

// mergeAdvisors merges built-in and user-defined advisor configurations.
// User-defined advisors override built-in advisors with the same id.
func mergeAdvisors(builtinAdvisors, userAdvisors map[string]AdvisorConfig) map[string]*AdvisorConfig {
	result := make(map[string]*AdvisorConfig, len(builtinAdvisors)+len(userAdvisors))

	for id, adv := range builtinAdvisors {
		advCopy := adv
		result[id] = &advCopy
	}

	for id, adv := range userAdvisors {
		advCopy := adv
		result[id] = &advCopy
	}

	return result
}
