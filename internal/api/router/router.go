package router

import (
	"context"
	"crypto/subtle"
	"errors"

	"resume-analyzer/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// APIKeyHeader 鉴权请求头
const APIKeyHeader = "X-API-Key"

// RegisterRoutes 注册 API 路由，apiKeys 为空时不启用鉴权
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, apiKeys []string) {
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		hlog.CtxDebugf(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		hlog.CtxDebugf(c, "Response: status %d", ctx.Response.StatusCode())
	})

	api := h.Group("/api/v1")
	api.GET("/health", resumeHandler.Health)

	protected := api.Group("")
	if len(apiKeys) > 0 {
		protected.Use(NewKeyAuth(apiKeys))
	}
	protected.POST("/extract", resumeHandler.Extract)
	protected.POST("/analyze", resumeHandler.Analyze)
	protected.POST("/batch", resumeHandler.Batch)
	protected.POST("/readiness", resumeHandler.Readiness)
}

var errInvalidAPIKey = errors.New("invalid API key")

// NewKeyAuth 校验 X-API-Key 请求头
func NewKeyAuth(apiKeys []string) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+APIKeyHeader, ""),
		keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
			for _, allowed := range apiKeys {
				if subtle.ConstantTimeCompare([]byte(key), []byte(allowed)) == 1 {
					return true, nil
				}
			}
			return false, errInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
			ctx.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": err.Error()})
		}),
	)
}
