package controller

import (
	"studyforge_backend/internal/service"
	"studyforge_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CreditController struct {
	Service *service.CreditService
}

func NewCreditController(svc *service.CreditService) *CreditController {
	return &CreditController{Service: svc}
}

// @Summary 查询积分余额
// @Description 本地账本余额；known为false表示尚无服务端回传记录
// @Tags 积分
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /credits [get]
func (c *CreditController) GetBalance(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	balance, known := c.Service.Balance(ctx.Request.Context(), user.UserID)
	util.Success(ctx, gin.H{
		"balance": balance,
		"known":   known,
	})
}
