package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/entity"
	"github.com/joseph-ayodele/contract-tracker/internal/logger"
)

const uploadField = "file"

var errNoFile = common.NewAppError("INVALID_INPUT", "업로드할 파일이 없습니다", common.ErrInvalidInput)

// uploadAndExtract streams the multipart file part straight into the
// pipeline; the body is never buffered in memory.
func uploadAndExtract(x Extractor, base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.WithContext(ctx, base)

		mr, err := c.Request.MultipartReader()
		if err != nil {
			log.Warn("http.upload.not_multipart", "err", err)
			c.JSON(http.StatusBadRequest, entity.FailedResult(common.UserMessage(errNoFile)))
			return
		}

		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				log.Warn("http.upload.read_failed", "err", err)
				c.JSON(http.StatusBadRequest, entity.FailedResult(common.UserMessage(errNoFile)))
				return
			}
			if part.FormName() != uploadField || part.FileName() == "" {
				_ = part.Close()
				continue
			}

			name := part.FileName()
			log.Info("http.upload.received", "file_name", name)
			res, err := x.ProcessUpload(ctx, part, name)
			_ = part.Close()
			if err != nil {
				c.JSON(common.HTTPStatus(err), res)
				return
			}
			c.JSON(http.StatusOK, res)
			return
		}

		c.JSON(http.StatusBadRequest, entity.FailedResult(common.UserMessage(errNoFile)))
	}
}
