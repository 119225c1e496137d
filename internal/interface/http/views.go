package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
)

// userView is the public shape of a user. The password hash never leaves the service.
func userView(u *entity.User) gin.H {
	return gin.H{
		"id":         u.ID(),
		"identifier": u.Identifier(),
		"username":   u.Username(),
		"enabled":    u.IsEnabled(),
		"roles":      u.Authorities(),
	}
}
