package api

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
	"github.com/victornm/botm/internal/session"
)

const memberKey = "member"

// identify loads the member of a valid session, if any. Requests without a session pass through.
func (a *API) identify(c *gin.Context) {
	token := sessionToken(c)
	if token == "" {
		c.Next()
		return
	}

	ss, err := a.ss.Parse(token)
	if err != nil {
		c.Next()
		return
	}

	m, err := a.ms.GetMember(c.Request.Context(), ss.MemberID)
	switch {
	case errors.Is(err, errors.CodeNotFound):
		// Deleted member with a live cookie.
	case err != nil:
		a.fail(c, err)
		return
	default:
		c.Set(memberKey, m)
	}

	c.Next()
}

func (a *API) requireMember(c *gin.Context) {
	if currentMember(c) == nil {
		a.fail(c, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("login required")))
		return
	}
	c.Next()
}

func (a *API) requireAdmin(c *gin.Context) {
	if m := currentMember(c); m == nil || !m.IsAdmin() {
		a.fail(c, errors.New(errors.CodePermissionDenied, errors.WithMessagef("admin access required")))
		return
	}
	c.Next()
}

func currentMember(c *gin.Context) *domain.Member {
	v, ok := c.Get(memberKey)
	if !ok {
		return nil
	}
	m, _ := v.(*domain.Member)
	return m
}

// sessionToken reads the session cookie, or a bearer token for API clients.
func sessionToken(c *gin.Context) string {
	if v, err := c.Cookie(session.CookieName); err == nil && v != "" {
		return v
	}

	h := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// fail renders err as {"code","message"} and aborts the chain.
func (a *API) fail(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}

// bind decodes the JSON body and reports validation errors as CodeInvalidArgument.
func bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid request: %v", err),
			errors.WithCause(err),
		)
	}
	return nil
}

func bindQuery(c *gin.Context, req any) error {
	if err := c.ShouldBindQuery(req); err != nil {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid query: %v", err),
			errors.WithCause(err),
		)
	}
	return nil
}
