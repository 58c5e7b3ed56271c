// Package security implements the log-injection and malicious-process
// detection rules that feed Evidence.SecurityIssues.
package security

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultLogPatterns is the fallback list used when no security_rules.yml
// log_patterns are configured, ported verbatim from the original's
// hardcoded default list in security.py.
var defaultLogPatterns = []string{
	"UNION SELECT", "syntax error", "ORA-", "MySQL Error",
	"/etc/passwd", "cat /flag", "whoami", "<script>", "alert(1)",
}

// defaultProcessBlacklist is the fallback list used when no
// security_rules.yml process_blacklist is configured.
var defaultProcessBlacklist = []string{
	"xmrig", "minerd", "nmap", "sqlmap", "hydra", "nc -e", "bash -i",
}

// Rules holds the loaded (or default) detection patterns.
type Rules struct {
	LogPatterns      []string
	ProcessBlacklist []string
}

type rulesFile struct {
	LogPatterns      map[string][]string `yaml:"log_patterns"`
	ProcessBlacklist []string            `yaml:"process_blacklist"`
}

// Load reads a security_rules.yml file, flattening all log_patterns
// categories into one list, same as the original's check_logs_for_injection.
// A missing file or parse failure is not fatal; it yields the built-in
// defaults so the monitor keeps running with baseline protection.
func Load(path string) Rules {
	if path == "" {
		return Rules{LogPatterns: defaultLogPatterns, ProcessBlacklist: defaultProcessBlacklist}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{LogPatterns: defaultLogPatterns, ProcessBlacklist: defaultProcessBlacklist}
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return Rules{LogPatterns: defaultLogPatterns, ProcessBlacklist: defaultProcessBlacklist}
	}

	rules := Rules{ProcessBlacklist: rf.ProcessBlacklist}
	for _, patterns := range rf.LogPatterns {
		rules.LogPatterns = append(rules.LogPatterns, patterns...)
	}
	if len(rules.LogPatterns) == 0 {
		rules.LogPatterns = defaultLogPatterns
	}
	if len(rules.ProcessBlacklist) == 0 {
		rules.ProcessBlacklist = defaultProcessBlacklist
	}
	return rules
}

// CheckLogs returns every configured pattern found as a substring of logs,
// duplicates included, matching the original's straightforward substring
// scan (not a regex engine — the patterns are literal strings by design).
func (r Rules) CheckLogs(logs string) []string {
	var matched []string
	for _, p := range r.LogPatterns {
		if strings.Contains(logs, p) {
			matched = append(matched, p)
		}
	}
	return matched
}

// CheckProcesses substring-matches the blacklist against each line of a
// `docker top`-style process listing.
func (r Rules) CheckProcesses(lines []string) []string {
	var matched []string
	for _, line := range lines {
		for _, p := range r.ProcessBlacklist {
			if strings.Contains(line, p) {
				matched = append(matched, p)
			}
		}
	}
	return matched
}
