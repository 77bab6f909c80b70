package api

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/isnotcursed/polymarket-casino-slot/internal/bet"
	apperrors "github.com/isnotcursed/polymarket-casino-slot/internal/errors"
	"github.com/isnotcursed/polymarket-casino-slot/internal/game"
)

// respondError 把领域错误转成统一错误响应
//
// Message 保持领域哨兵错误的原始文案，前端依赖这些文案做展示。
func respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	c.JSON(appErr.HTTPStatus(), apperrors.NewErrorResponse(appErr, c.GetHeader("X-Request-ID")))
}

// toAppError 领域错误到错误码的映射
func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		appErr.Stack = nil
		return appErr
	}

	code := apperrors.ErrUnknown
	switch {
	case stderrors.Is(err, game.ErrGameInProgress):
		code = apperrors.ErrGameInProgress
	case stderrors.Is(err, bet.ErrInsufficientBalance):
		code = apperrors.ErrInsufficientBalance
	case stderrors.Is(err, bet.ErrMarketUnavailable):
		code = apperrors.ErrMarketUnavailable
	case stderrors.Is(err, bet.ErrBetNotFound):
		code = apperrors.ErrBetNotFound
	case stderrors.Is(err, bet.ErrBetNotActive):
		code = apperrors.ErrBetNotActive
	case stderrors.Is(err, bet.ErrBetNotCancelable):
		code = apperrors.ErrBetNotCancelable
	case stderrors.Is(err, bet.ErrInvalidAmount):
		code = apperrors.ErrInvalidBet
	case stderrors.Is(err, bet.ErrInvalidDirection):
		code = apperrors.ErrInvalidBet
	}

	result := apperrors.New(code)
	result.Message = err.Error()
	result.Stack = nil
	return result
}
