package authz

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/garyjia/hospital-itsm/internal/application/port"
	"go.uber.org/zap"
)

// roleModel grants a step's required role to that role and to every role
// that inherits it through g rules.
const roleModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// Config describes role eligibility
type Config struct {
	// AdminRole satisfies every required role. Empty disables the bypass.
	AdminRole string
	// Inherits maps a role to the roles it may act for,
	// e.g. "it_manager": ["it_staff"].
	Inherits map[string][]string
}

// Checker implements port.RoleChecker on a casbin enforcer
type Checker struct {
	cfg      Config
	enforcer *casbin.Enforcer
	logger   *zap.Logger

	mu       sync.RWMutex
	policies map[string]bool
}

// NewChecker builds the enforcer and loads the role hierarchy
func NewChecker(cfg Config, logger *zap.Logger) (*Checker, error) {
	m, err := model.NewModelFromString(roleModel)
	if err != nil {
		return nil, fmt.Errorf("authz: failed to parse model: %w", err)
	}
	enf, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
	}

	roles := make([]string, 0, len(cfg.Inherits))
	for role := range cfg.Inherits {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		for _, inherited := range cfg.Inherits[role] {
			if _, err := enf.AddGroupingPolicy(role, inherited); err != nil {
				return nil, fmt.Errorf("authz: failed to add %s -> %s: %w", role, inherited, err)
			}
		}
	}

	logger.Info("Role checker initialized",
		zap.String("admin_role", cfg.AdminRole),
		zap.Int("inheriting_roles", len(roles)))

	return &Checker{cfg: cfg, enforcer: enf, logger: logger, policies: make(map[string]bool)}, nil
}

// Satisfies reports whether actorRole may act on a step requiring requiredRole
func (c *Checker) Satisfies(ctx context.Context, actorRole, requiredRole string) (bool, error) {
	if actorRole == "" {
		return false, nil
	}
	if requiredRole == "" || actorRole == requiredRole {
		return true, nil
	}
	if c.cfg.AdminRole != "" && actorRole == c.cfg.AdminRole {
		return true, nil
	}

	if err := c.ensurePolicy(requiredRole); err != nil {
		return false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	ok, err := c.enforcer.Enforce(actorRole, requiredRole)
	if err != nil {
		return false, fmt.Errorf("authz: enforce failed: %w", err)
	}
	if !ok {
		c.logger.Debug("Role does not satisfy step",
			zap.String("actor_role", actorRole), zap.String("required_role", requiredRole))
	}
	return ok, nil
}

// ensurePolicy adds "p, role, role" the first time a role is required
func (c *Checker) ensurePolicy(role string) error {
	c.mu.RLock()
	seeded := c.policies[role]
	c.mu.RUnlock()
	if seeded {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.policies[role] {
		return nil
	}
	if _, err := c.enforcer.AddPolicy(role, role); err != nil {
		return fmt.Errorf("authz: failed to add policy for %s: %w", role, err)
	}
	c.policies[role] = true
	return nil
}

var _ port.RoleChecker = (*Checker)(nil)
