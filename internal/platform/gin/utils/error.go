package ginutils

import (
	"github.com/gin-gonic/gin"

	"github.com/pageforge/pageforge/pkg/common"
)

// ReplyWithErrorResponse replies with an error response.
func ReplyWithErrorResponse(ctx *gin.Context, errorResponse *common.ErrorResponse) {
	ctx.JSON(errorResponse.Code, errorResponse)
}
