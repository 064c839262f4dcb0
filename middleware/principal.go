package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/wallpress/models"
)

// ContextPrincipalKey is the key used to store the resolved principal in Gin context.
const ContextPrincipalKey = "principal"

// SetPrincipal attaches p to the request context.
func SetPrincipal(ctx *gin.Context, p *models.Principal) {
	if p == nil {
		return
	}
	ctx.Set(ContextPrincipalKey, p)
}

// CurrentPrincipal returns the principal resolved for this request, or nil.
func CurrentPrincipal(ctx *gin.Context) *models.Principal {
	value, exists := ctx.Get(ContextPrincipalKey)
	if !exists {
		return nil
	}
	p, _ := value.(*models.Principal)
	return p
}
