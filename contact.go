package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const contactThanks = "Thank you for reaching out. I'll get back to you soon."

// statusCheckLimit caps GET /api/status.
const statusCheckLimit = 1000

// ContactSubmissionCreate is the body accepted by POST /api/contact.
type ContactSubmissionCreate struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email,max=320"`
	Company string `json:"company" binding:"max=200"`
	Message string `json:"message" binding:"required,max=5000"`
}

func (in *ContactSubmissionCreate) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Company = strings.TrimSpace(in.Company)
	in.Message = strings.TrimSpace(in.Message)
}

// ContactSubmissionResponse is returned with 201 Created.
type ContactSubmissionResponse struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// StatusCheckCreate is the body accepted by POST /api/status.
type StatusCheckCreate struct {
	ClientName string `json:"client_name" binding:"required,max=200"`
}

// apiError writes the {"detail": ...} body every API error uses.
func apiError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// bindingDetail turns a bind error into a sentence for the visitor.
func bindingDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func (s *server) handleContact(c *gin.Context) {
	var in ContactSubmissionCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		apiError(c, http.StatusUnprocessableEntity, bindingDetail(err))
		return
	}
	in.normalize()
	if in.Name == "" || in.Message == "" {
		apiError(c, http.StatusUnprocessableEntity, "name and message must not be blank")
		return
	}

	sub := ContactSubmission{
		ID:          s.newID(),
		Name:        in.Name,
		Email:       in.Email,
		Company:     in.Company,
		Message:     in.Message,
		SubmittedAt: s.now().UTC(),
		Status:      StatusNew,
	}

	ctx := c.Request.Context()
	if err := s.store.InsertSubmission(ctx, sub); err != nil {
		s.log.Error().Err(err).Msg("error processing contact submission")
		apiError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.mailer.SendContact(ctx, sub); err != nil {
		s.log.Error().Err(err).Str("submission_id", sub.ID).Msg("failed to send email notification")
		apiError(c, http.StatusInternalServerError, "Failed to send email notification: "+err.Error())
		return
	}

	s.log.Info().Str("submission_id", sub.ID).Msg("contact submission saved")
	c.JSON(http.StatusCreated, ContactSubmissionResponse{
		ID:          sub.ID,
		Message:     contactThanks,
		SubmittedAt: sub.SubmittedAt,
	})
}

func (s *server) handleCreateStatus(c *gin.Context) {
	var in StatusCheckCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		apiError(c, http.StatusUnprocessableEntity, bindingDetail(err))
		return
	}

	sc := StatusCheck{
		ID:         s.newID(),
		ClientName: strings.TrimSpace(in.ClientName),
		Timestamp:  s.now().UTC(),
	}
	if err := s.store.InsertStatusCheck(c.Request.Context(), sc); err != nil {
		s.log.Error().Err(err).Msg("error storing status check")
		apiError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (s *server) handleListStatus(c *gin.Context) {
	checks, err := s.store.ListStatusChecks(c.Request.Context(), statusCheckLimit)
	if err != nil {
		s.log.Error().Err(err).Msg("error listing status checks")
		apiError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, checks)
}
