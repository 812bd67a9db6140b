package auth

import (
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
)

const identityKey = "auth.identity"

// Identity is the authenticated caller, placed on the request once by the
// auth middleware and passed explicitly into use cases.
type Identity struct {
	UserID string
	Role   models.Role
	Email  string
	// Service is set for requests authenticated by API key.
	Service bool
}

func (id Identity) IsAdmin() bool { return id.Role == models.RoleAdmin }

func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// CurrentIdentity is for handlers mounted behind RequireAuth.
func CurrentIdentity(c *gin.Context) Identity {
	id, _ := IdentityFrom(c)
	return id
}
