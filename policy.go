package auth

import (
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gofiber/fiber/v2"
)

// Special policy subjects
const (
	SubjectAuthenticated = "AUTHENTICATED"
	SubjectAnonymous     = "ANONYMOUS"

	// matches SubjectAuthenticated rules and no role
	subjectAnyAccount = "ANY_ACCOUNT"
)

// RouteRule grants a subject access to a path pattern for methods. Subject
// is a role name, an authority or SubjectAuthenticated. Methods empty means
// any method.
type RouteRule struct {
	Subject string
	Path    string
	Methods []string
}

// DefaultRouteRules guard the route groups of the service
func DefaultRouteRules(basePath string) []RouteRule {
	base := strings.TrimSuffix(basePath, "/")
	return []RouteRule{
		{Subject: SubjectAuthenticated, Path: base + "/users/*"},
		{Subject: RoleAdmin, Path: base + "/admin/*"},
		{Subject: RoleStaff, Path: base + "/staff/*"},
		{Subject: RoleUniversity, Path: base + "/universities/private/*"},
	}
}

// RoutePolicy evaluates path based rules with casbin
type RoutePolicy struct {
	enforcer   *casbin.SyncedEnforcer
	contextKey string
	logger     Logger
}

// NewRoutePolicy builds an enforcer holding rules
func NewRoutePolicy(rules ...RouteRule) (*RoutePolicy, error) {
	m, err := model.NewModelFromString(routeModelConf)
	if err != nil {
		return nil, internalError(err, "parse route policy model")
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, internalError(err, "create route policy enforcer")
	}

	p := &RoutePolicy{
		enforcer:   enforcer,
		contextKey: DefaultContextKey,
		logger:     defLogger(),
	}
	for _, rule := range rules {
		if err := p.AddRule(rule); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *RoutePolicy) WithLogger(l Logger) *RoutePolicy {
	p.logger = resolveLogger(l)
	return p
}

func (p *RoutePolicy) WithContextKey(key string) *RoutePolicy {
	if key != "" {
		p.contextKey = key
	}
	return p
}

// AddRule registers an allow rule
func (p *RoutePolicy) AddRule(rule RouteRule) error {
	subject := rule.Subject
	if subject != SubjectAuthenticated {
		subject = Authority(subject)
	}

	methods := ".*"
	if len(rule.Methods) > 0 {
		upper := make([]string, 0, len(rule.Methods))
		for _, m := range rule.Methods {
			upper = append(upper, strings.ToUpper(m))
		}
		methods = strings.Join(upper, "|")
	}

	if _, err := p.enforcer.AddPolicy(subject, rule.Path, "^("+methods+")$"); err != nil {
		return internalError(err, "add route rule", "path", rule.Path)
	}
	return nil
}

// Decide evaluates a request for identity, which may be nil
func (p *RoutePolicy) Decide(identity *IdentityContext, path, method string) error {
	subject := SubjectAnonymous
	if identity != nil {
		subject = identity.Authority
	}

	ok, err := p.enforcer.Enforce(subject, path, strings.ToUpper(method))
	if err != nil {
		return internalError(err, "evaluate route policy", "path", path)
	}
	if ok {
		return nil
	}
	if identity != nil {
		return newError(CodeAccessDenied, "path", path, "authority", identity.Authority)
	}

	// anonymous callers only need to log in when any account would pass
	ok, err = p.enforcer.Enforce(subjectAnyAccount, path, strings.ToUpper(method))
	if err != nil {
		return internalError(err, "evaluate route policy", "path", path)
	}
	if ok {
		return newError(CodeUnauthenticated, "path", path)
	}
	return newError(CodeAccessDenied, "path", path)
}

// Middleware enforces the policy for the routes it is mounted on. Paths
// within the group that no rule matches are denied.
func (p *RoutePolicy) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, _ := IdentityFromFiber(c, p.contextKey)
		if err := p.Decide(identity, c.Path(), c.Method()); err != nil {
			p.logger.Debug("route policy denied request", "path", c.Path(), "method", c.Method(), "error", err)
			return err
		}
		return c.Next()
	}
}
