package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lotusair/booking/internal/domain"
	"github.com/lotusair/booking/internal/service/members"
)

const sessionCookie = "session_token"

const memberKey = "member"

// Auth resolves the session cookie to a member. With required=false it
// only decorates the context; with required=true an invalid or absent
// session is a 401.
func Auth(service members.MemberUseCase, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
				return
			}
			c.Next()
			return
		}

		member, err := service.Authenticate(c.Request.Context(), token)
		if err != nil {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.UserMessage(err)})
				return
			}
			c.Next()
			return
		}

		c.Set(memberKey, member)
		c.Next()
	}
}

func currentMember(c *gin.Context) *domain.Member {
	v, ok := c.Get(memberKey)
	if !ok {
		return nil
	}
	member, _ := v.(*domain.Member)
	return member
}
