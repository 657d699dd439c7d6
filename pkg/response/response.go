package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

const jsonContentType = "application/json; charset=utf-8"

// Envelope is the body of every JSON response. Successful operations carry
// their outcome code under meta.outcome; failures carry it in error.code.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success envelope. The body is encoded before the status line is
// written, so a payload that cannot be encoded turns into a 500 error envelope.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	write(c, status, envelope)
}

// Outcome sends a success envelope tagged with the outcome of the operation.
func Outcome(c *gin.Context, status int, outcome models.Outcome, data interface{}) {
	JSON(c, status, data, nil, map[string]interface{}{"outcome": outcome})
}

// Created responds with 201 and the created resource.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error renders err as an error envelope using its code and status.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	write(c, appErr.Status, Envelope{Error: appErr})
}

// File streams a generated document as an attachment.
func File(c *gin.Context, contentType, filename string, body []byte) {
	noStore(c)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, body)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func write(c *gin.Context, status int, envelope Envelope) {
	noStore(c)
	body, err := json.Marshal(envelope)
	if err != nil {
		_ = c.Error(fmt.Errorf("encode response: %w", err))
		fallback, _ := json.Marshal(Envelope{Error: appErrors.As(appErrors.ErrInternal, err)})
		c.Data(http.StatusInternalServerError, jsonContentType, fallback)
		return
	}
	c.Data(status, jsonContentType, body)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
