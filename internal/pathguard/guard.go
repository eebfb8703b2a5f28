// Package pathguard enforces the containment policy for store paths before
// any filesystem access happens.
package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/fsdocs/internal/apperr"
)

// Confinement selects whether paths are resolved against a root.
type Confinement int

const (
	// ConfinementRoot resolves relative paths against the store root.
	ConfinementRoot Confinement = iota
	// ConfinementNone has no root; every path must be absolute.
	ConfinementNone
)

func (c Confinement) String() string {
	switch c {
	case ConfinementRoot:
		return "root"
	case ConfinementNone:
		return "none"
	default:
		return fmt.Sprintf("confinement(%d)", int(c))
	}
}

// ParseConfinement maps a config value onto a Confinement.
func ParseConfinement(s string) (Confinement, error) {
	switch s {
	case "", "root":
		return ConfinementRoot, nil
	case "none":
		return ConfinementNone, nil
	default:
		return 0, fmt.Errorf("pathguard: unknown confinement %q", s)
	}
}

// Rule is the absoluteness check applied to an operation path.
type Rule int

const (
	MustBeRelative Rule = iota
	MustBeAbsolute
	Any
)

// Policy is the single configurable containment policy.
//
//   - {ConfinementRoot, false}: relative paths only (strict, the default)
//   - {ConfinementRoot, true}:  relative paths confined, absolute paths pass through
//   - {ConfinementNone, _}:     rootless, absolute paths only
type Policy struct {
	Confinement   Confinement
	AllowAbsolute bool
}

// Strict is the default policy.
var Strict = Policy{Confinement: ConfinementRoot}

// Rule returns the absoluteness rule implied by the policy.
func (p Policy) Rule() Rule {
	switch {
	case p.Confinement == ConfinementNone:
		return MustBeAbsolute
	case p.AllowAbsolute:
		return Any
	default:
		return MustBeRelative
	}
}

func (p Policy) String() string {
	return fmt.Sprintf("confinement=%s allow_absolute=%t", p.Confinement, p.AllowAbsolute)
}

// Validate checks path against rule.
func Validate(path string, rule Rule) error {
	abs := filepath.IsAbs(path)
	switch rule {
	case MustBeRelative:
		if abs {
			return fmt.Errorf("%w: absolute path not allowed: %s", apperr.ErrPathPolicyViolation, path)
		}
	case MustBeAbsolute:
		if !abs {
			return fmt.Errorf("%w: path must be absolute: %s", apperr.ErrPathPolicyViolation, path)
		}
	}
	return nil
}

// Guard validates and resolves operation paths for one store.
type Guard struct {
	root   string
	policy Policy
}

// New creates a Guard. A confined policy needs an absolute root; a rootless
// policy must not be given one.
func New(root string, policy Policy) (*Guard, error) {
	switch policy.Confinement {
	case ConfinementRoot:
		if root == "" || !filepath.IsAbs(root) {
			return nil, fmt.Errorf("%w: root must be absolute: %q", apperr.ErrInvalidRootPath, root)
		}
		root = filepath.Clean(root)
	case ConfinementNone:
		if root != "" {
			return nil, fmt.Errorf("%w: rootless policy given root %q", apperr.ErrInvalidRootPath, root)
		}
	default:
		return nil, fmt.Errorf("%w: unknown confinement %d", apperr.ErrInvalidRootPath, int(policy.Confinement))
	}
	return &Guard{root: root, policy: policy}, nil
}

// Root returns the cleaned confinement root, empty when rootless.
func (g *Guard) Root() string { return g.root }

// Policy returns the guard's policy.
func (g *Guard) Policy() Policy { return g.policy }

// Resolve validates path and returns the absolute path it designates.
// Relative paths are joined with the root and must stay under it.
func (g *Guard) Resolve(path string) (string, error) {
	if err := Validate(path, g.policy.Rule()); err != nil {
		return "", err
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	joined := filepath.Join(g.root, path)
	if !g.within(joined) {
		return "", fmt.Errorf("%w: path escapes root: %s", apperr.ErrPathPolicyViolation, path)
	}
	return joined, nil
}

// IsRoot reports whether abs is the confinement root itself.
func (g *Guard) IsRoot(abs string) bool {
	return g.root != "" && filepath.Clean(abs) == g.root
}

// Display converts an absolute path to the form handed back to callers.
func (g *Guard) Display(abs string) string {
	if g.policy.Confinement == ConfinementNone || !g.within(abs) {
		return abs
	}
	rel, err := filepath.Rel(g.root, abs)
	if err != nil {
		return abs
	}
	return rel
}

func (g *Guard) within(abs string) bool {
	if g.root == "" {
		return false
	}
	if abs == g.root {
		return true
	}
	prefix := g.root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(abs, prefix)
}
