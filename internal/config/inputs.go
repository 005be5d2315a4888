package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Input keys. The names match the CI action inputs, including the
// historical spelling of the master override.
const (
	KeyScanType               = "scan-type"
	KeyScanTarget             = "scan-target"
	KeySeverity               = "severity"
	KeyIgnoreUnfixed          = "ignore-unfixed"
	KeyFormat                 = "format"
	KeyExitCode               = "exit-code"
	KeyFailOnVulnerability    = "fail-on-vulnerability"
	KeyFailOnMisconfiguration = "fail-on-misconfiguration"
	KeyFailOnSecret           = "fail-on-secret"
	KeyMasterOverride         = "fail_on_vulneribility"
	KeyGitHubToken            = "github-token"
	KeyAPIEndpoint            = "api_endpoint"
	KeyPruneNodeModules       = "prune-node-modules"
	KeySBOMOutput             = "sbom-output"
	KeySecretRules            = "secret-rules"
	KeyTargetKind             = "target-kind"
)

// InputKeys lists every input key.
var InputKeys = []string{
	KeyScanType, KeyScanTarget, KeySeverity, KeyIgnoreUnfixed, KeyFormat, KeyExitCode,
	KeyFailOnVulnerability, KeyFailOnMisconfiguration, KeyFailOnSecret, KeyMasterOverride,
	KeyGitHubToken, KeyAPIEndpoint, KeyPruneNodeModules, KeySBOMOutput, KeySecretRules, KeyTargetKind,
}

// Inputs holds the per-run options. Fail toggles stay raw strings: only an
// explicit "false" disables them.
type Inputs struct {
	ScanType      string
	ScanTarget    string
	Severity      string
	IgnoreUnfixed bool
	Format        string
	ExitCode      string

	FailOnVulnerability    string
	FailOnMisconfiguration string
	FailOnSecret           string
	MasterOverride         string

	GitHubToken      string
	APIEndpoint      string
	PruneNodeModules bool
	SBOMOutput       string
	SecretRules      string
	TargetKind       string
}

// DefaultInputs returns Inputs with default values.
func DefaultInputs() Inputs {
	return Inputs{
		ScanType:               "all",
		ScanTarget:             ".",
		Severity:               "CRITICAL,HIGH,MEDIUM,LOW",
		Format:                 "table",
		ExitCode:               "1",
		FailOnVulnerability:    "true",
		FailOnMisconfiguration: "true",
		FailOnSecret:           "true",
		MasterOverride:         "true",
		TargetKind:             "fs",
	}
}

// InputEnvName returns the environment variable carrying key, following the
// GitHub Actions convention (INPUT_ + upper-cased name, hyphens kept).
func InputEnvName(key string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(key, " ", "_"))
}

// LoadInputs resolves inputs with priority: changed flags > INPUT_* env >
// config file > defaults. flags and configFile may be empty.
func LoadInputs(flags *pflag.FlagSet, configFile string) (Inputs, error) {
	v := viper.New()
	setDefaults(v)

	for _, key := range InputKeys {
		if err := v.BindEnv(key, InputEnvName(key)); err != nil {
			return Inputs{}, err
		}
	}
	if flags != nil {
		for _, key := range InputKeys {
			if f := flags.Lookup(key); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Inputs{}, err
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Inputs{}, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	in := Inputs{
		ScanType:               v.GetString(KeyScanType),
		ScanTarget:             v.GetString(KeyScanTarget),
		Severity:               v.GetString(KeySeverity),
		IgnoreUnfixed:          v.GetBool(KeyIgnoreUnfixed),
		Format:                 strings.ToLower(v.GetString(KeyFormat)),
		ExitCode:               strings.TrimSpace(v.GetString(KeyExitCode)),
		FailOnVulnerability:    v.GetString(KeyFailOnVulnerability),
		FailOnMisconfiguration: v.GetString(KeyFailOnMisconfiguration),
		FailOnSecret:           v.GetString(KeyFailOnSecret),
		MasterOverride:         v.GetString(KeyMasterOverride),
		GitHubToken:            v.GetString(KeyGitHubToken),
		APIEndpoint:            v.GetString(KeyAPIEndpoint),
		PruneNodeModules:       v.GetBool(KeyPruneNodeModules),
		SBOMOutput:             v.GetString(KeySBOMOutput),
		SecretRules:            v.GetString(KeySecretRules),
		TargetKind:             strings.ToLower(v.GetString(KeyTargetKind)),
	}
	if in.TargetKind != "fs" && in.TargetKind != "image" {
		return Inputs{}, fmt.Errorf("invalid %s %q (want fs or image)", KeyTargetKind, in.TargetKind)
	}
	return in, nil
}

// ScanTypes splits ScanType into lower-cased entries.
func (in Inputs) ScanTypes() []string {
	var out []string
	for _, s := range strings.Split(in.ScanType, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	d := DefaultInputs()
	v.SetDefault(KeyScanType, d.ScanType)
	v.SetDefault(KeyScanTarget, d.ScanTarget)
	v.SetDefault(KeySeverity, d.Severity)
	v.SetDefault(KeyIgnoreUnfixed, false)
	v.SetDefault(KeyFormat, d.Format)
	v.SetDefault(KeyExitCode, d.ExitCode)
	v.SetDefault(KeyFailOnVulnerability, d.FailOnVulnerability)
	v.SetDefault(KeyFailOnMisconfiguration, d.FailOnMisconfiguration)
	v.SetDefault(KeyFailOnSecret, d.FailOnSecret)
	v.SetDefault(KeyMasterOverride, d.MasterOverride)
	v.SetDefault(KeyPruneNodeModules, false)
	v.SetDefault(KeyTargetKind, d.TargetKind)
}
