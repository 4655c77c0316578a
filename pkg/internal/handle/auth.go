package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/mediavault/pkg/context"
	"github.com/yeisme/mediavault/pkg/internal/model"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/types"
	"github.com/yeisme/mediavault/pkg/log"
	"github.com/yeisme/mediavault/pkg/rule"
)

const (
	msgCredentialsRequired = "Username and password are required."
	msgLoginDisabled       = "Admin login is not configured."
	msgLoggedIn            = "Logged in."
	msgLoggedOut           = "Logged out."
)

// Login 校验管理员凭据并写入 httpOnly 会话 cookie.
//
//	@Summary		管理员登录
//	@Description	校验凭据后写入 httpOnly 会话 cookie，按客户端 IP 限流
//	@Tags			认证
//	@Accept			json
//	@Produce		json
//	@Param			credentials	body		types.LoginRequest	true	"管理员凭据"
//	@Success		200	{object}	types.ActionResult	"登录成功"
//	@Failure		400	{object}	types.ActionResult	"缺少凭据"
//	@Failure		401	{object}	types.ActionResult	"凭据错误"
//	@Failure		403	{object}	types.ActionResult	"未配置管理员密码"
//	@Failure		429	{object}	map[string]string	"请求过于频繁"
//	@Router			/api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	l := log.Logger()

	var req types.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, msgCredentialsRequired)
		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		fail(c, http.StatusBadRequest, msgCredentialsRequired)
		return
	}

	token, err := h.auth.Login(req.Username, req.Password)
	h.recordLogin(c, req.Username, err)

	switch {
	case errors.Is(err, service.ErrLoginDisabled):
		fail(c, http.StatusForbidden, msgLoginDisabled)
		return
	case errors.Is(err, service.ErrUnauthorized):
		l.Warn().Str("username", req.Username).Str("client_ip", c.ClientIP()).Msg("login rejected")
		fail(c, http.StatusUnauthorized, service.MsgInvalidCredentials)

		return
	case err != nil:
		l.Error().Err(err).Msg("issue session token failed")
		fail(c, http.StatusInternalServerError, "Login failed.")

		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.auth.CookieName(), token, int(h.auth.SessionTTL().Seconds()), "/", "", h.auth.CookieSecure(), true)
	c.JSON(http.StatusOK, types.ActionResult{Success: true, Message: msgLoggedIn})
}

// Logout 吊销当前令牌并清除 cookie，未登录时同样返回成功.
//
//	@Summary		退出登录
//	@Description	吊销当前令牌并清除会话 cookie
//	@Tags			认证
//	@Produce		json
//	@Success		200	{object}	types.ActionResult	"已退出"
//	@Router			/api/v1/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	sess := ctxPkg.GetSession(c.Request.Context())
	if sess.Admin {
		if err := h.auth.Revoke(c.Request.Context(), sess); err != nil {
			log.Logger().Warn().Err(err).Msg("revoke session failed")
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.auth.CookieName(), "", -1, "/", "", h.auth.CookieSecure(), true)
	c.JSON(http.StatusOK, types.ActionResult{Success: true, Message: msgLoggedOut})
}

// Session 返回当前会话状态，前端据此显示上传与删除入口.
//
//	@Summary		获取会话状态
//	@Tags			认证
//	@Produce		json
//	@Success		200	{object}	types.SessionResponse	"当前会话"
//	@Router			/api/v1/auth/session [get]
func (h *Handler) Session(c *gin.Context) {
	sess := ctxPkg.GetSession(c.Request.Context())
	c.JSON(http.StatusOK, types.SessionResponse{Admin: sess.Admin, Subject: sess.Subject})
}

func (h *Handler) recordLogin(c *gin.Context, username string, err error) {
	a := &model.Activity{
		Action:   model.ActionLogin,
		Actor:    username,
		Success:  err == nil,
		ClientIP: c.ClientIP(),
	}
	if err != nil {
		a.Message = err.Error()
	}

	if rerr := h.activity.Record(c.Request.Context(), a); rerr != nil {
		log.Logger().Warn().Err(rerr).Msg("record login activity failed")
	}
}
