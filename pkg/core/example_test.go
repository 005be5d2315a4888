package core_test

import (
	"fmt"

	"github.com/varalys/pipescan/pkg/core"
)

// ExampleEvaluate shows the policy applied to reports produced elsewhere.
func ExampleEvaluate() {
	trivyJSON := []byte(`{"Results":[{"Target":"package-lock.json","Vulnerabilities":[
		{"VulnerabilityID":"CVE-2022-24999","PkgName":"qs","InstalledVersion":"6.5.2","Severity":"CRITICAL"}]}]}`)

	res := core.Aggregate(core.ParseTrivyVulnerabilities(trivyJSON))
	verdict := core.Evaluate(core.PolicyOptions{}, res)

	fmt.Println(verdict)
	for _, r := range verdict.Reasons {
		fmt.Println(r)
	}
	// Output:
	// fail
	// 1 vulnerabilities (1 Critical, 0 High)
}
