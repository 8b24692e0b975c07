package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"agency-forms/logger"
	"agency-forms/models"
	"agency-forms/service"
)

const (
	msgMethodNotAllowed = "Method not allowed"
	msgBodyTooLarge     = "Request body too large"
	msgJoinFailed       = "Failed to join the waiting list."
	retryAfterSeconds   = "30"
)

func (s *Server) handleContact(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		c.JSON(http.StatusMethodNotAllowed, models.ContactErrorResponse{Error: msgMethodNotAllowed})
		return
	}

	if err := s.contact.CheckConfig(); err != nil {
		s.writeContactError(c, err)
		return
	}

	var sub models.ContactSubmission
	if err := bindJSON(c, &sub); err != nil {
		s.writeContactError(c, err)
		return
	}

	result, err := s.contact.Submit(c.Request.Context(), sub)
	if err != nil {
		s.writeContactError(c, err)
		return
	}

	resp := models.ContactResponse{Success: true, Message: service.MsgContactSent}
	if result.Degraded() {
		resp.Deliveries = &result.Deliveries
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) writeContactError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status := kind.StatusCode()
	if isBodyTooLarge(err) {
		c.JSON(http.StatusRequestEntityTooLarge, models.ContactErrorResponse{Error: msgBodyTooLarge})
		return
	}

	var resp models.ContactErrorResponse
	switch kind {
	case service.KindValidation:
		resp.Error = service.Message(err, err.Error())
	case service.KindConfiguration:
		resp.Error = service.MsgConfigError
		resp.Details = err.Error()
		s.log.Error("contact form not configured",
			logger.RequestID(c.GetString(requestIDKey)), logger.Error(err))
	default:
		resp.Error = service.MsgSendFailed
		resp.Details = err.Error()
		resp.Retryable = kind.Retryable()
	}
	if resp.Retryable {
		c.Header("Retry-After", retryAfterSeconds)
	}
	c.JSON(status, resp)
}

func (s *Server) handleWaitingList(c *gin.Context) {
	var entry models.WaitingListEntry
	if err := bindJSON(c, &entry); err != nil {
		s.writeWaitingListError(c, err)
		return
	}

	saved, err := s.waitingList.Join(c.Request.Context(), entry)
	if err != nil {
		s.writeWaitingListError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.WaitingListResponse{
		Success: true,
		Message: service.MsgWaitingListAdded,
		Data:    &models.WaitingListData{ID: saved.ID},
	})
}

func (s *Server) writeWaitingListError(c *gin.Context, err error) {
	if isBodyTooLarge(err) {
		c.JSON(http.StatusRequestEntityTooLarge, models.WaitingListResponse{Error: msgBodyTooLarge})
		return
	}

	kind := service.KindOf(err)
	resp := models.WaitingListResponse{Retryable: kind.Retryable()}
	switch kind {
	case service.KindValidation:
		resp.Error = service.Message(err, err.Error())
	case service.KindConfiguration:
		resp.Error = service.MsgConfigError
	case service.KindTransport, service.KindTimeout:
		resp.Error = err.Error()
	default:
		resp.Error = msgJoinFailed
	}

	if kind != service.KindValidation {
		s.log.Error("waiting list signup failed",
			logger.RequestID(c.GetString(requestIDKey)),
			slog.String("kind", kind.String()),
			logger.Error(err),
		)
	}
	if resp.Retryable {
		c.Header("Retry-After", retryAfterSeconds)
	}
	c.JSON(kind.StatusCode(), resp)
}

// bindJSON decodes the body into dst. An empty body decodes as an empty
// object so that missing fields are reported by validation.
func bindJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return service.InvalidBody("api.decode", err)
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
