package types

// Severity is the normalized risk level of a vulnerability or misconfiguration.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityUnknown  Severity = "UNKNOWN"
)

// ParseSeverity maps a raw tool severity onto the five known levels.
// Matching is case-sensitive; anything else becomes SeverityUnknown.
func ParseSeverity(raw string) Severity {
	switch Severity(raw) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return Severity(raw)
	default:
		return SeverityUnknown
	}
}

// SeverityRank returns a numeric rank for sorting (lower = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// Category identifies which kind of issue a scanner reports.
type Category string

const (
	CategoryVulnerability    Category = "VULNERABILITY"
	CategoryMisconfiguration Category = "MISCONFIGURATION"
	CategorySecret           Category = "SECRET"
)

// Categories lists every category in reporting order.
var Categories = []Category{CategoryVulnerability, CategoryMisconfiguration, CategorySecret}

// Noun returns the plural human-readable name used in summaries.
func (c Category) Noun() string {
	switch c {
	case CategoryVulnerability:
		return "vulnerabilities"
	case CategoryMisconfiguration:
		return "misconfigurations"
	case CategorySecret:
		return "secrets"
	default:
		return "findings"
	}
}

// HasSeverity reports whether findings of this category carry a severity.
func (c Category) HasSeverity() bool {
	return c != CategorySecret
}

// SeverityCounts holds per-severity totals. Unknown is counted separately
// from the four named buckets.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Unknown  int `json:"unknown"`
}

// Add counts one finding of the given severity.
func (c *SeverityCounts) Add(s Severity) {
	switch s {
	case SeverityCritical:
		c.Critical++
	case SeverityHigh:
		c.High++
	case SeverityMedium:
		c.Medium++
	case SeverityLow:
		c.Low++
	default:
		c.Unknown++
	}
}

// Plus returns the bucket-wise sum of c and o.
func (c SeverityCounts) Plus(o SeverityCounts) SeverityCounts {
	return SeverityCounts{
		Critical: c.Critical + o.Critical,
		High:     c.High + o.High,
		Medium:   c.Medium + o.Medium,
		Low:      c.Low + o.Low,
		Unknown:  c.Unknown + o.Unknown,
	}
}

// Named returns critical+high+medium+low.
func (c SeverityCounts) Named() int {
	return c.Critical + c.High + c.Medium + c.Low
}

// Get returns the count for a single severity.
func (c SeverityCounts) Get(s Severity) int {
	switch s {
	case SeverityCritical:
		return c.Critical
	case SeverityHigh:
		return c.High
	case SeverityMedium:
		return c.Medium
	case SeverityLow:
		return c.Low
	default:
		return c.Unknown
	}
}

// VulnerabilityDetail is the payload of a VULNERABILITY finding.
type VulnerabilityDetail struct {
	ID               string `json:"id"`
	Package          string `json:"package"`
	InstalledVersion string `json:"version"`
	FixedVersion     string `json:"fixedVersion,omitempty"`
	Title            string `json:"title,omitempty"`
	PrimaryURL       string `json:"primaryUrl,omitempty"`
	Target           string `json:"target,omitempty"`
}

// MisconfigDetail is the payload of a MISCONFIGURATION finding.
type MisconfigDetail struct {
	File        string     `json:"file"`
	RuleID      string     `json:"ruleId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Message     string     `json:"message,omitempty"`
	Resolution  string     `json:"resolution,omitempty"`
	Line        int        `json:"line,omitempty"`
	Code        []CodeLine `json:"code,omitempty"`
}

// CodeLine is one line of source quoted by a misconfiguration.
type CodeLine struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// SecretDetail is the payload of a SECRET finding. File is the path as the
// tool reported it; DisplayFile is the padded form used by reports.
type SecretDetail struct {
	File        string `json:"file"`
	DisplayFile string `json:"displayFile"`
	StartLine   int    `json:"startLine"`
	EndLine     int    `json:"endLine"`
	StartColumn int    `json:"startColumn"`
	EndColumn   int    `json:"endColumn"`
	RuleID      string `json:"ruleId"`
	Description string `json:"description,omitempty"`
	MatchedText string `json:"match"`
	SecretText  string `json:"secret"`
}

// Finding describes one detected issue. Exactly one of the detail pointers
// is set, matching Category. Severity is empty for secrets.
type Finding struct {
	Category         Category             `json:"category"`
	Severity         Severity             `json:"severity,omitempty"`
	Vulnerability    *VulnerabilityDetail `json:"vulnerability,omitempty"`
	Misconfiguration *MisconfigDetail     `json:"misconfiguration,omitempty"`
	Secret           *SecretDetail        `json:"secret,omitempty"`
}

// MisconfigTarget keeps the config scanner's native per-file structure,
// which the upload payload needs as-is.
type MisconfigTarget struct {
	Target            string            `json:"Target"`
	Class             string            `json:"Class"`
	Type              string            `json:"Type"`
	Misconfigurations []MisconfigRecord `json:"Misconfigurations"`
}

// MisconfigRecord is one native misconfiguration entry.
type MisconfigRecord struct {
	ID          string `json:"ID"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Severity    string `json:"Severity"`
	PrimaryURL  string `json:"PrimaryURL"`
	Query       string `json:"Query"`
}

// ScanResult is the uniform output of one scanner run. It is not modified
// after the scanner returns it.
type ScanResult struct {
	ScannerName string         `json:"scannerName"`
	Category    Category       `json:"category"`
	Total       int            `json:"total"`
	BySeverity  SeverityCounts `json:"bySeverity"`
	Findings    []Finding      `json:"findings"`

	// ArtifactPath points at a generated artifact (the SBOM) that must
	// survive until upload has finished.
	ArtifactPath string `json:"artifactPath,omitempty"`
	// Components is the number of components listed in the SBOM artifact.
	Components int `json:"components,omitempty"`

	// FilesScanned counts the config targets the tool evaluated.
	FilesScanned  int               `json:"filesScanned,omitempty"`
	ArtifactName  string            `json:"artifactName,omitempty"`
	ArtifactType  string            `json:"artifactType,omitempty"`
	ConfigTargets []MisconfigTarget `json:"configTargets,omitempty"`

	// Warnings records recoverable problems, e.g. unparseable tool output.
	Warnings []string `json:"warnings,omitempty"`
}

// NewResult returns an empty result with a non-nil findings slice.
func NewResult(scannerName string, category Category) ScanResult {
	return ScanResult{ScannerName: scannerName, Category: category, Findings: []Finding{}}
}

// AddFinding appends f and updates Total and BySeverity.
func (r *ScanResult) AddFinding(f Finding) {
	r.Findings = append(r.Findings, f)
	r.Total++
	if f.Category.HasSeverity() {
		r.BySeverity.Add(f.Severity)
	}
}
