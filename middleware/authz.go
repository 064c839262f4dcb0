package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/wallpress/models"
	"github.com/cppla/wallpress/utils"
)

// Policy names an authorization rule attached to a route.
type Policy string

const (
	PolicyPublic           Policy = "public"
	PolicyAuthenticated    Policy = "authenticated"
	PolicyAdminOrOwner     Policy = "admin_or_owner"
	PolicyOwnerOnly        Policy = "owner_only"
	PolicySelfOrPrivileged Policy = "self_or_privileged"
)

// OwnerLookup resolves the id of the user owning the resource addressed by the
// request. A client-side *utils.AppError (typically NotFound) is passed through;
// any other error becomes a 500.
type OwnerLookup func(ctx *gin.Context) (string, error)

// Rule is the authorization requirement of one route.
type Rule struct {
	Policy Policy
	Owner  OwnerLookup
}

// Public, Authenticated, AdminOrOwner and OwnerOnly are the rules that need no lookup.
var (
	Public        = Rule{Policy: PolicyPublic}
	Authenticated = Rule{Policy: PolicyAuthenticated}
	AdminOrOwner  = Rule{Policy: PolicyAdminOrOwner}
	OwnerOnly     = Rule{Policy: PolicyOwnerOnly}
)

// SelfOrPrivileged allows admins and owners outright, and anyone else only when
// lookup names them as the resource owner.
func SelfOrPrivileged(lookup OwnerLookup) Rule {
	return Rule{Policy: PolicySelfOrPrivileged, Owner: lookup}
}

// Evaluate decides whether p may proceed under rule. owner is only called when
// the role alone is insufficient.
func Evaluate(p *models.Principal, rule Rule, owner func() (string, error)) error {
	switch rule.Policy {
	case PolicyPublic, "":
		return nil
	}

	if p == nil {
		return utils.AuthenticationRequired(40100)
	}

	switch rule.Policy {
	case PolicyAuthenticated:
		return nil
	case PolicyAdminOrOwner:
		if p.IsPrivileged() {
			return nil
		}
		return utils.AuthorizationDenied(40300, "admin or owner role required")
	case PolicyOwnerOnly:
		if p.IsOwner() {
			return nil
		}
		return utils.AuthorizationDenied(40301, "owner role required")
	case PolicySelfOrPrivileged:
		if p.IsPrivileged() {
			return nil
		}
		if owner == nil {
			return utils.AuthorizationDenied(40302, "forbidden")
		}
		ownerID, err := owner()
		if err != nil {
			var appErr *utils.AppError
			if errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError {
				return appErr
			}
			return utils.InternalError(50001, err)
		}
		if ownerID != "" && ownerID == p.ID {
			return nil
		}
		return utils.AuthorizationDenied(40302, "forbidden")
	default:
		return utils.AuthorizationDenied(40303, "unknown policy")
	}
}

// Authorize enforces rule before the route handler runs.
func Authorize(rule Rule) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var owner func() (string, error)
		if rule.Owner != nil {
			owner = func() (string, error) { return rule.Owner(ctx) }
		}
		if err := Evaluate(CurrentPrincipal(ctx), rule, owner); err != nil {
			utils.Fail(ctx, err)
			return
		}
		ctx.Next()
	}
}
