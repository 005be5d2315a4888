package trivy

// Report is the subset of Trivy's JSON report read by the adapters.
type Report struct {
	ArtifactName string   `json:"ArtifactName"`
	ArtifactType string   `json:"ArtifactType"`
	Results      []Result `json:"Results"`
}

// Result is one scanned target (a lock file, manifest, Dockerfile, ...).
type Result struct {
	Target            string             `json:"Target"`
	Class             string             `json:"Class"`
	Type              string             `json:"Type"`
	Vulnerabilities   []Vulnerability    `json:"Vulnerabilities"`
	Misconfigurations []Misconfiguration `json:"Misconfigurations"`
}

type Vulnerability struct {
	VulnerabilityID  string `json:"VulnerabilityID"`
	PkgName          string `json:"PkgName"`
	InstalledVersion string `json:"InstalledVersion"`
	FixedVersion     string `json:"FixedVersion"`
	Title            string `json:"Title"`
	Severity         string `json:"Severity"`
	PrimaryURL       string `json:"PrimaryURL"`
}

type Misconfiguration struct {
	Type          string        `json:"Type"`
	ID            string        `json:"ID"`
	AVDID         string        `json:"AVDID"`
	Title         string        `json:"Title"`
	Description   string        `json:"Description"`
	Message       string        `json:"Message"`
	Query         string        `json:"Query"`
	Resolution    string        `json:"Resolution"`
	Severity      string        `json:"Severity"`
	PrimaryURL    string        `json:"PrimaryURL"`
	Status        string        `json:"Status"`
	CauseMetadata CauseMetadata `json:"CauseMetadata"`
}

type CauseMetadata struct {
	StartLine int  `json:"StartLine"`
	EndLine   int  `json:"EndLine"`
	Code      Code `json:"Code"`
}

type Code struct {
	Lines []Line `json:"Lines"`
}

type Line struct {
	Number  int    `json:"Number"`
	Content string `json:"Content"`
}

// failed reports whether the check failed. Older Trivy releases omit
// Status for failures.
func (m Misconfiguration) failed() bool {
	return m.Status == "" || m.Status == "FAIL"
}
