package ginutils

import (
	"context"

	"github.com/gin-gonic/gin"

	pfContext "github.com/pageforge/pageforge/internal/platform/context"
	"github.com/pageforge/pageforge/internal/platform/gin/correlationid"
)

// Context returns a new Go context from a Gin context.
func Context(ctx context.Context, c *gin.Context) context.Context {
	cid := c.GetString(correlationid.ContextKey)

	if cid == "" {
		return ctx
	}

	return pfContext.WithCorrelationID(ctx, cid)
}
