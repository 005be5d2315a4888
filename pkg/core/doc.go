// Package core provides a small, stable facade over pipescan's result model
// for external integrations: parse tool reports you already have, aggregate
// them, and apply the fail policy without running the CLI.
//
// Example:
//
//	vulns := core.ParseTrivyVulnerabilities(trivyJSON)
//	secrets, err := core.ParseGitleaks(".", gitleaksJSON)
//	if err != nil { /* handle */ }
//	res := core.Aggregate(vulns, secrets)
//	verdict := core.Evaluate(core.PolicyOptions{}, res)
package core
