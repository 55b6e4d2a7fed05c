package common

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/utils"
	"github.com/anoixa/photogram/utils/logger"
	"github.com/anoixa/photogram/utils/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Response struct {
	Status string      `json:"status"`
	Msg    string      `json:"msg"`
	Data   interface{} `json:"data,omitempty"`
}

func Respond(c *gin.Context, httpStatus int, status string, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Status: status,
		Msg:    message,
		Data:   data,
	})
}

// RespondSuccess sends a success response with data.
func RespondSuccess(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, "success", "", data)
}

// RespondCreated sends a 201 response with data.
func RespondCreated(c *gin.Context, data interface{}) {
	Respond(c, http.StatusCreated, "success", "", data)
}

// RespondSuccessMessage sends a success response with message and data.
func RespondSuccessMessage(c *gin.Context, message string, data interface{}) {
	Respond(c, http.StatusOK, "success", message, data)
}

// RespondError sends an error response with message.
func RespondError(c *gin.Context, httpStatus int, message string) {
	Respond(c, httpStatus, "error", message, nil)
}

// RespondErrorAbort sends an error response and aborts the handler chain.
func RespondErrorAbort(c *gin.Context, httpStatus int, message string) {
	RespondError(c, httpStatus, message)
	c.Abort()
}

// StatusFor 错误种类对应的 HTTP 状态码
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrStorageUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// StatusClientClosedRequest 客户端在响应前断开
const StatusClientClosedRequest = 499

// RespondErr 按错误种类返回响应，未归类的错误只记录日志，不向客户端暴露细节
func RespondErr(c *gin.Context, err error) {
	if utils.IsClientDisconnect(err) {
		logger.Named("api").Debug("Client went away", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatus(StatusClientClosedRequest)
		return
	}

	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Named("api").Error("Unhandled error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		RespondError(c, status, "Internal server error")
		return
	}
	if status == http.StatusBadGateway {
		logger.Named("api").Warn("Media store error", zap.String("path", c.FullPath()), zap.Error(err))
	}
	RespondError(c, status, errs.Message(err))
}

// ParseID 解析路径中的数字 ID
func ParseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		RespondError(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// 分页默认值
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Pagination 读取 skip 和 limit 查询参数
func Pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return offset, limit
}

// ReadUpload 读取表单图片，超过 maxBytes 或不是图片时返回校验错误
func ReadUpload(c *gin.Context, field string, maxBytes int64) ([]byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, errs.Newf(errs.ErrValidation, "file is required under the '%s' key", field)
	}
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return nil, errs.Newf(errs.ErrValidation, "file exceeds maximum size of %d MB", maxBytes>>20)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if ok, mimeType := validator.IsImage(data); !ok {
		return nil, errs.Newf(errs.ErrValidation, "unsupported file type: %s", mimeType)
	}
	return data, nil
}
