package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/innkeep/internal/app"
	iauth "github.com/charlesng35/innkeep/internal/auth"
	"github.com/charlesng35/innkeep/internal/models"
)

// CheckStatus captures the outcome of a posture check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check contains the result of a single verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// Failing lists the checks that did not pass.
func (r Result) Failing() []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Status != StatusPass {
			out = append(out, c)
		}
	}
	return out
}

// Checker reviews the deployment's security-relevant settings. Every
// dependency is optional; a missing one turns its checks into warnings.
type Checker struct {
	db  *gorm.DB
	jwt *iauth.JWTService
	cfg *app.Config
	now func() time.Time
}

func NewChecker(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) *Checker {
	return &Checker{db: db, jwt: jwt, cfg: cfg, now: time.Now}
}

// WithClock overrides the clock used in results.
func (s *Checker) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes all checks.
func (s *Checker) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkSuperadmin(ctx),
		s.checkJWTSecret(),
		s.checkTokenTTL(),
		s.checkCORS(),
		s.checkLoginThrottle(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}
	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: s.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func (s *Checker) checkSuperadmin(ctx context.Context) Check {
	const id = "superadmin_present"
	if s.db == nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Database unavailable, unable to confirm a superadmin exists",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	var active, pending int64
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Model(&models.User{}).
			Joins("JOIN roles ON roles.id = users.global_role_id").
			Where("roles.name = ? AND roles.hotel_id IS NULL AND users.is_active = ?", models.RoleSuperadmin, true)
	}
	if err := base().Count(&active).Error; err != nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not count superadmins: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}
	if active == 0 {
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "No active superadmin account.",
			Remediation: "Set bootstrap.username and bootstrap.password and restart to create one.",
		}
	}

	if err := base().Where("users.must_reset_password = ?", true).Count(&pending).Error; err == nil && pending > 0 {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("%d superadmin account(s) still use their initial password.", pending),
			Remediation: "Log in and change the bootstrap password.",
			Details:     map[string]any{"count": active, "pending_reset": pending},
		}
	}

	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: "Superadmin present.",
		Details: map[string]any{"count": active},
	}
}

func (s *Checker) checkJWTSecret() Check {
	const id = "jwt_secret_strength"
	if s.jwt == nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "JWT service not initialised, unable to assess signing secret strength.",
			Remediation: "Initialise the JWT service with a strong secret.",
		}
	}

	length := s.jwt.SecretLength()
	switch {
	case length < 32:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
			Details:     map[string]any{"length": length},
		}
	case length < 48:
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider 48 or more.", length),
			Remediation: "Increase INNKEEP_AUTH_JWT_SECRET to at least 48 bytes.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      id,
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func (s *Checker) checkTokenTTL() Check {
	const id = "access_token_ttl"
	if s.jwt == nil {
		return Check{
			ID:      id,
			Status:  StatusWarn,
			Message: "JWT service not initialised, unable to read the token lifetime.",
		}
	}

	const maxRecommended = 24 * time.Hour
	ttl := s.jwt.TTL()
	if ttl > maxRecommended {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Access tokens live for %s, longer than the recommended %s.", ttl, maxRecommended),
			Remediation: "Lower auth.jwt.access_token_ttl; tokens cannot be revoked before they expire.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: fmt.Sprintf("Access token lifetime is %s.", ttl),
		Details: map[string]any{"ttl": ttl.String()},
	}
}

func (s *Checker) checkCORS() Check {
	const id = "cors_origins"
	if s.cfg == nil {
		return Check{ID: id, Status: StatusWarn, Message: "Configuration not loaded."}
	}

	origins := make([]string, 0, len(s.cfg.Server.CORSOrigins))
	for _, origin := range s.cfg.Server.CORSOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	for _, origin := range origins {
		if origin == "*" {
			origins = nil
			break
		}
	}
	if len(origins) == 0 {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Any origin may call the API from a browser.",
			Remediation: "List the front-end origins in server.cors_origins.",
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: "Browser access is limited to configured origins.",
		Details: map[string]any{"origins": origins},
	}
}

func (s *Checker) checkLoginThrottle() Check {
	const id = "login_rate_limit"
	if s.cfg == nil {
		return Check{ID: id, Status: StatusWarn, Message: "Configuration not loaded."}
	}

	rule := s.cfg.Server.LoginRateLimit
	if rule.Requests <= 0 || rule.Window <= 0 {
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "Login attempts are not throttled.",
			Remediation: "Set server.login_rate_limit.requests and window.",
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: fmt.Sprintf("Login limited to %d attempts per %s.", rule.Requests, rule.Window),
	}
}
