package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"schooldesk/internal/auth"
	"schooldesk/internal/dispatch"
	"schooldesk/internal/rowstore"
	"schooldesk/internal/school"
)

const (
	msgLoginRequired = "please log in first"
	msgNotPermitted  = "this action is not available to student accounts"
)

// authorize applies the session rules: public actions are open, everything
// else needs a session, and students may only read and mark announcements.
func (h *Handler) authorize(c *gin.Context, action string, info dispatch.Info) (int, string) {
	if info.Public {
		return http.StatusOK, ""
	}
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return http.StatusUnauthorized, msgLoginRequired
	}
	if claims.Role == auth.RoleStudent && info.Write && action != dispatch.MarkAnnouncementsAsRead {
		return http.StatusForbidden, msgNotPermitted
	}
	return http.StatusOK, ""
}

// issueSession sets AuthTokenHeader for the identity a login returned.
func (h *Handler) issueSession(c *gin.Context, identity any) error {
	var subject, role string
	switch v := identity.(type) {
	case *school.Admin:
		subject, role = v.Username, auth.RoleAdmin
	case rowstore.Record:
		subject, role = rowstore.Text(v["id"]), auth.RoleStudent
	default:
		return fmt.Errorf("unexpected login result %T", identity)
	}
	tok, err := auth.Issue(subject, role, h.auth.Issuer, h.auth.SigningKey, h.auth.TTL)
	if err != nil {
		return err
	}
	c.Header(AuthTokenHeader, tok.Value)
	return nil
}
