// Package classifier maps a user request to the capability class most
// likely to serve it.
package classifier

import (
	"regexp"
	"strings"

	"github.com/Cyclone1070/sysmate/internal/tool"
)

// DefaultMinConfidence accepts any request with at least one hit.
const DefaultMinConfidence = 0.5

// Classification is the outcome of classifying one request.
type Classification struct {
	Capability tool.Capability
	Confidence float64
	// Scores holds hit counts per candidate capability.
	Scores map[tool.Capability]int
}

// Classifier scores requests against capability keyword sets.
// It is stateless apart from its configuration.
type Classifier struct {
	minConfidence float64
}

// New creates a classifier. A non-positive minConfidence selects
// DefaultMinConfidence.
func New(minConfidence float64) *Classifier {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Classifier{minConfidence: minConfidence}
}

var builtinKeywords = map[tool.Capability][]string{
	tool.CapabilityFilesystem: {
		"file", "files", "folder", "folders", "directory", "directories", "dir",
		"read", "write", "create", "delete", "remove", "rename", "copy", "move",
		"list", "contents", "path", "save", "open",
	},
	tool.CapabilityShell: {
		"run", "execute", "command", "commands", "shell", "terminal", "script",
		"process", "processes", "kill", "install", "bash", "sh", "exec",
	},
	tool.CapabilityGit: {
		"git", "commit", "commits", "branch", "branches", "repo", "repository",
		"staged", "unstaged", "diff", "merge", "history", "checkout", "log",
	},
	tool.CapabilityInformational: {
		"system", "os", "cpu", "cpus", "memory", "hostname", "uptime", "version",
		"info", "information", "architecture", "arch", "kernel", "hardware",
		"platform", "machine",
	},
}

// matcher reports whether a request carries a capability signal.
type matcher interface {
	MatchString(s string) bool
}

var builtinPatterns = map[tool.Capability][]matcher{
	tool.CapabilityFilesystem: {
		regexp.MustCompile(`(?:^|\s)(?:~|\.{1,2})?/\w[\w.\-]*(?:/[\w.\-]+)*`),
		regexp.MustCompile(`\b[\w\-]+\.(?:txt|md|go|py|js|ts|json|ya?ml|toml|log|csv|conf|cfg|ini|sh)\b`),
	},
	tool.CapabilityShell: {
		regexp.MustCompile("`[^`]+`"),
		regexp.MustCompile(`(?:^|\s)\$\s*\w+`),
		regexp.MustCompile(`\b(?:ls|grep|find|du|df|ps|top|kill|chmod|chown|curl|wget|apt|brew|npm|make|tar)\s+-`),
	},
	tool.CapabilityGit: {
		regexp.MustCompile(`\bgit\s+\w+`),
		commitHash{regexp.MustCompile(`\b[0-9a-f]{7,40}\b`)},
	},
}

// commitHash matches abbreviated or full object ids. A run of hex must mix
// letters and digits so plain numbers like timestamps are not taken for one.
type commitHash struct {
	re *regexp.Regexp
}

func (h commitHash) MatchString(s string) bool {
	for _, m := range h.re.FindAllString(s, -1) {
		if strings.ContainsAny(m, "abcdef") && strings.ContainsAny(m, "0123456789") {
			return true
		}
	}
	return false
}

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// Classify scores msg against every capability that has a registered tool,
// in the registry's first-registration order. The best-scoring capability
// wins; ties go to the earliest. Requests below the confidence threshold
// are conversational with zero confidence.
func (c *Classifier) Classify(msg string, reg *tool.Registry) Classification {
	lower := strings.ToLower(msg)
	words := make(map[string]bool)
	for _, w := range wordRe.FindAllString(lower, -1) {
		words[w] = true
	}

	keywords := toolKeywords(reg)
	scores := make(map[tool.Capability]int)
	best := tool.CapabilityConversational
	bestHits := 0
	for _, capability := range reg.Capabilities() {
		hits := 0
		for kw := range keywordSet(capability, keywords[capability]) {
			if words[kw] {
				hits++
			}
		}
		for _, re := range builtinPatterns[capability] {
			if re.MatchString(lower) {
				hits++
			}
		}
		scores[capability] = hits
		if hits > bestHits {
			best, bestHits = capability, hits
		}
	}

	confidence := float64(bestHits) / float64(bestHits+1)
	if bestHits == 0 || confidence < c.minConfidence {
		return Classification{Capability: tool.CapabilityConversational, Scores: scores}
	}
	return Classification{Capability: best, Confidence: confidence, Scores: scores}
}

// toolKeywords collects name parts and declared keywords of every tool,
// grouped by capability.
func toolKeywords(reg *tool.Registry) map[tool.Capability][]string {
	out := make(map[tool.Capability][]string)
	for _, spec := range reg.List() {
		for _, part := range strings.FieldsFunc(strings.ToLower(spec.Name), func(r rune) bool {
			return r == '_' || r == '-' || r == '.'
		}) {
			out[spec.Capability] = append(out[spec.Capability], part)
		}
		for _, kw := range spec.Keywords {
			out[spec.Capability] = append(out[spec.Capability], strings.ToLower(kw))
		}
	}
	return out
}

// keywordSet merges the built-in keywords of capability with extra.
func keywordSet(capability tool.Capability, extra []string) map[string]bool {
	set := make(map[string]bool)
	for _, kw := range builtinKeywords[capability] {
		set[kw] = true
	}
	for _, kw := range extra {
		if kw != "" {
			set[kw] = true
		}
	}
	return set
}
