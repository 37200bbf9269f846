package http

import (
	"errors"
	"net/http"
	"strconv"

	"course-service/domain/dto"
	"course-service/domain/model"
	"course-service/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

// writeError maps domain errors onto status codes and the Res envelope.
func writeError(ctx *gin.Context, err error) {
	res := dto.Res{ResponseMessage: err.Error()}
	status := http.StatusInternalServerError

	var (
		verrs  model.ValidationErrors
		verr   *model.ValidationError
		nf     *model.NotFoundError
		upload *model.UploadFailedError
		merr   *model.MutationError
	)
	switch {
	case errors.As(err, &verrs):
		status = http.StatusBadRequest
		res.Details = verrs
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.As(err, &nf):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrVersionConflict):
		status = http.StatusConflict
		res.Retryable = true
	case errors.As(err, &upload):
		status = http.StatusBadGateway
		res.Retryable = upload.Retryable()
	}
	if errors.As(err, &merr) {
		res.Stage = string(merr.Stage)
		res.Attempts = merr.Attempts()
		res.Retryable = merr.Retryable()
	}
	res.ResponseCode = strconv.Itoa(status)

	if status == http.StatusInternalServerError {
		logger.GetLogger().WithField("path", ctx.FullPath()).WithError(err).Error("Request failed")
		res.ResponseMessage = "Internal server error"
		if merr != nil {
			res.ResponseMessage = string(merr.Op) + " failed at " + string(merr.Stage)
		}
	}
	ctx.AbortWithStatusJSON(status, res)
}
