package sandbox

import (
	"fmt"
	"regexp"
	"strings"
)

// Guard validates code against a safety policy before it is sent to the
// executor: a size cap, a denylist of dangerous constructs, and an
// import allowlist.
type Guard struct {
	maxLength      int
	allowedImports map[string]bool
}

// dangerousPatterns match constructs that must never reach the
// executor, even though it is isolated.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bos\.`),
	regexp.MustCompile(`\bsys\.`),
	regexp.MustCompile(`\bsubprocess\b`),
	regexp.MustCompile(`\beval\s*\(`),
	regexp.MustCompile(`\bexec\s*\(`),
	regexp.MustCompile(`\bopen\s*\(`),
	regexp.MustCompile(`__import__`),
	regexp.MustCompile(`\brequests\b`),
	regexp.MustCompile(`\burllib\b`),
	regexp.MustCompile(`\bsocket\b`),
	regexp.MustCompile(`\bshutil\b`),
}

var importLine = regexp.MustCompile(`(?m)^\s*(?:import\s+([\w.]+)|from\s+([\w.]+)\s+import\b)`)

// NewGuard builds a guard with the given size cap and comma-separated
// import allowlist.
func NewGuard(maxLength int, allowedImports string) *Guard {
	allowed := make(map[string]bool)
	for _, name := range strings.Split(allowedImports, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			allowed[name] = true
		}
	}
	return &Guard{maxLength: maxLength, allowedImports: allowed}
}

// ValidateCode returns an error describing the first policy violation,
// or nil when the code is safe to dispatch.
func (g *Guard) ValidateCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("code is empty")
	}
	if g.maxLength > 0 && len(code) > g.maxLength {
		return fmt.Errorf("code exceeds maximum length of %d characters", g.maxLength)
	}

	for _, p := range dangerousPatterns {
		if loc := p.FindString(code); loc != "" {
			return fmt.Errorf("disallowed construct: %s", strings.TrimSpace(loc))
		}
	}

	for _, m := range importLine.FindAllStringSubmatch(code, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		// Only the top-level module matters for the allowlist.
		root := strings.SplitN(name, ".", 2)[0]
		if !g.allowedImports[root] {
			return fmt.Errorf("import of %q is not allowed", root)
		}
	}

	return nil
}
