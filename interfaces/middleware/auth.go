package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"course-service/domain/dto"
	"course-service/domain/model"
	"course-service/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// Auth accepts HS256 bearer tokens signed with secretKey. When role is not
// empty the token must carry it.
func Auth(secretKey, role string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

		authorization := ctx.Request.Header.Get("Authorization")
		auth := strings.Split(authorization, "Bearer ")
		if authorization == "" || len(auth) != 2 || auth[1] == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		userClaims, token, err := getClaim(auth[1], secretKey)
		if err != nil || token == nil || !token.Valid {
			abort(err, &res)
			logger.GetLogger().WithField("path", ctx.FullPath()).Warn(res.ResponseMessage)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		if role != "" && userClaims.Role != role {
			res.ResponseCode = "403"
			res.ResponseMessage = "Forbidden"
			ctx.AbortWithStatusJSON(http.StatusForbidden, res)
			return
		}

		ctx.Set("user_id", userClaims.Subject)
		ctx.Set("user_name", userClaims.UserName)
		ctx.Next()
	}
}

func abort(err error, res *dto.Res) {
	var ve *jwt.ValidationError
	if !errors.As(err, &ve) {
		return
	}
	if ve.Errors&jwt.ValidationErrorMalformed != 0 {
		res.ResponseMessage = "That's not even a token"
	} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
		// Token is either expired or not active yet
		res.ResponseMessage = "Timing is everything"
	} else {
		res.ResponseMessage = fmt.Sprintf("Couldn't handle this token:%v", err)
	}
}

func getClaim(raw, secretKey string) (model.UserClaims, *jwt.Token, error) {
	var userClaims model.UserClaims
	token, err := jwt.ParseWithClaims(
		raw,
		&userClaims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
	)
	return userClaims, token, err
}
