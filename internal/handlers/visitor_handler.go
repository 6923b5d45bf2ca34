package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/middleware"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/internal/services"
)

// VisitorDesk runs the unknown-visitor lifecycle
type VisitorDesk interface {
	Submit(ctx context.Context, in services.SubmitVisitorInput) (*models.VisitorRequest, error)
	Approve(ctx context.Context, id uuid.UUID) (*models.VisitorRequest, error)
	Reject(ctx context.Context, id uuid.UUID) (*models.VisitorRequest, error)
	ListPending(ctx context.Context, flatNumber string) ([]models.VisitorRequest, error)
	History(ctx context.Context) ([]models.VisitorRequest, error)
}

// VisitorPasses issues and verifies QR passes for expected visitors
type VisitorPasses interface {
	Create(ctx context.Context, in services.CreateKnownVisitorInput) (*models.KnownVisitor, error)
	Verify(ctx context.Context, qrData string) (*models.KnownVisitor, error)
	List(ctx context.Context, flatNumber string) ([]models.KnownVisitor, error)
}

// VisitorHandler handles gate visitor requests and visitor passes
type VisitorHandler struct {
	visitors VisitorDesk
	passes   VisitorPasses
	audit    auditTrail
	logger   *logrus.Logger
}

// NewVisitorHandler creates a new visitor handler
func NewVisitorHandler(visitors VisitorDesk, passes VisitorPasses, auditor Auditor, logger *logrus.Logger) *VisitorHandler {
	return &VisitorHandler{
		visitors: visitors,
		passes:   passes,
		audit:    auditTrail{auditor: auditor, logger: logger},
		logger:   logger,
	}
}

// SubmitUnknown handles POST /api/visitor/unknown (multipart: name, purpose, flatNumber, image)
func (h *VisitorHandler) SubmitUnknown(c *gin.Context) {
	in := services.SubmitVisitorInput{
		Name:       c.PostForm("name"),
		Purpose:    c.PostForm("purpose"),
		FlatNumber: c.PostForm("flatNumber"),
	}

	image, closeImage, err := formImage(c, "image")
	if err != nil {
		badRequest(c, "INVALID_UPLOAD", "Could not read uploaded image")
		return
	}
	defer closeImage()
	in.Image = image

	v, err := h.visitors.Submit(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Visitor request submitted",
		"visitor": v,
	})
}

// ListPending handles GET /api/visitor/pending?flatNumber=.
// Without a flatNumber the caller's own flat is used.
func (h *VisitorHandler) ListPending(c *gin.Context) {
	flat := c.Query("flatNumber")
	if flat == "" {
		flat = middleware.MustGetUserContext(c).FlatNumber
	}

	visitors, err := h.visitors.ListPending(c.Request.Context(), flat)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, visitors)
}

// Approve handles PUT /api/visitor/approve/:id
func (h *VisitorHandler) Approve(c *gin.Context) {
	h.decide(c, h.visitors.Approve)
}

// Reject handles PUT /api/visitor/reject/:id
func (h *VisitorHandler) Reject(c *gin.Context) {
	h.decide(c, h.visitors.Reject)
}

func (h *VisitorHandler) decide(c *gin.Context, apply func(context.Context, uuid.UUID) (*models.VisitorRequest, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "INVALID_ID", "Invalid visitor id")
		return
	}

	v, err := apply(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	userCtx := middleware.MustGetUserContext(c)
	h.audit.safeLogVisitorDecision(c, userCtx.UserID.String(), v.ID, string(v.Status))

	c.JSON(http.StatusOK, gin.H{
		"message": "Visitor " + string(v.Status),
		"visitor": v,
	})
}

// History handles GET /api/visitor/history
func (h *VisitorHandler) History(c *gin.Context) {
	visitors, err := h.visitors.History(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, visitors)
}

// CreatePass handles POST /api/visitor/create
func (h *VisitorHandler) CreatePass(c *gin.Context) {
	var req models.CreateKnownVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "All fields are required")
		return
	}

	userCtx := middleware.MustGetUserContext(c)
	flat := req.FlatNumber
	if flat == "" {
		flat = userCtx.FlatNumber
	}

	v, err := h.passes.Create(c.Request.Context(), services.CreateKnownVisitorInput{
		Name:       req.Name,
		Contact:    req.Contact,
		Email:      req.Email,
		VisitDate:  req.VisitDate,
		Purpose:    req.Purpose,
		FlatNumber: flat,
		CreatedBy:  uuid.NullUUID{UUID: userCtx.UserID, Valid: userCtx.UserID != uuid.Nil},
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Visitor added successfully and QR code sent to email!",
		"visitor": v,
	})
}

// VerifyPass handles POST /api/visitor/verify
func (h *VisitorHandler) VerifyPass(c *gin.Context) {
	var req models.VerifyVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "qrData is required")
		return
	}

	v, err := h.passes.Verify(c.Request.Context(), req.QRData)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	userCtx := middleware.MustGetUserContext(c)
	h.audit.safeLogVisitorDecision(c, userCtx.UserID.String(), v.ID, "verified")

	c.JSON(http.StatusOK, gin.H{
		"message": "Visitor approved",
		"visitor": v,
	})
}

// ListPasses handles GET /api/visitor?flatNumber=
func (h *VisitorHandler) ListPasses(c *gin.Context) {
	visitors, err := h.passes.List(c.Request.Context(), c.Query("flatNumber"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, visitors)
}

// formImage opens an optional multipart file. A missing part yields a nil reader.
func formImage(c *gin.Context, field string) (io.Reader, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return f, func() { _ = f.Close() }, nil
}
