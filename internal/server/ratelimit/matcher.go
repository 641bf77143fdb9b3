package ratelimit

// unlimited marks an endpoint that is never throttled.
var unlimited = Rule{}

// matchRule resolves a request to its budget rule. The health check is
// always unlimited; otherwise the first matching rule wins, and nil means
// the default budget applies.
func matchRule(path, method string, rules []Rule) *Rule {
	if path == "/health" && method == "GET" {
		return &unlimited
	}
	for i := range rules {
		if rules[i].matches(path, method) {
			return &rules[i]
		}
	}
	return nil
}
