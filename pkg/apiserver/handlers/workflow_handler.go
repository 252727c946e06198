package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simplifyhr/offerflow/pkg/eventbus"
	"github.com/simplifyhr/offerflow/pkg/export"
	"github.com/simplifyhr/offerflow/pkg/model"
	"github.com/simplifyhr/offerflow/pkg/offer"
	"github.com/simplifyhr/offerflow/pkg/store"
	"github.com/simplifyhr/offerflow/pkg/supervisor"
)

const exportLimit = 5000

// Subscriber is satisfied by *eventbus.Bus.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) <-chan *eventbus.Event
}

type WorkflowHandler struct {
	sup    *supervisor.Supervisor
	events Subscriber
	logger *zap.Logger
}

func NewWorkflowHandler(sup *supervisor.Supervisor, events Subscriber, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{sup: sup, events: events, logger: logger}
}

type initiateRequest struct {
	ApplicationID string `json:"application_id" binding:"required"`
}

type advanceRequest struct {
	StepData     map[string]interface{} `json:"step_data"`
	ExpectedStep int                    `json:"expected_step"`
}

type responseRequest struct {
	Response         string   `json:"response" binding:"required"`
	Notes            string   `json:"notes"`
	FinalOfferAmount *float64 `json:"final_offer_amount"`
}

type draftRequest struct {
	Salary *float64 `json:"salary"`
}

func (h *WorkflowHandler) Initiate(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	applicationID, err := uuid.Parse(req.ApplicationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application_id"})
		return
	}

	wf, err := h.sup.Initiate(c.Request.Context(), applicationID, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, supervisor.NewWorkflowView(wf))
}

func (h *WorkflowHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filter := store.WorkflowFilter{
		CreatedBy: ownerScope(p),
		Limit:     parseLimit(c.Query("limit"), 20),
		Offset:    parseOffset(c.Query("offset")),
	}
	if value := strings.TrimSpace(c.Query("status")); value != "" {
		status := model.WorkflowStatus(value)
		filter.Status = &status
	}

	page, err := h.sup.List(c.Request.Context(), filter)
	if err != nil {
		if offer.Code(err) == offer.CodeInternal {
			h.logger.Error("failed to list offer workflows", zap.Error(err))
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"workflows": page.Items,
		"total":     page.Total,
	})
}

func (h *WorkflowHandler) Get(c *gin.Context) {
	wf, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, supervisor.NewWorkflowView(wf))
}

func (h *WorkflowHandler) Advance(c *gin.Context) {
	wf, ok := h.load(c)
	if !ok {
		return
	}
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	out := h.sup.AdvanceWorkflow(c.Request.Context(), wf.ID, req.StepData, req.ExpectedStep)
	c.JSON(statusFor(out.Code), out)
}

func (h *WorkflowHandler) Respond(c *gin.Context) {
	wf, ok := h.load(c)
	if !ok {
		return
	}
	var req responseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	out := h.sup.RecordResponseOutcome(c.Request.Context(), wf.ID, offer.CandidateResponse{
		Response:         offer.ResponseKind(req.Response),
		Notes:            req.Notes,
		FinalOfferAmount: req.FinalOfferAmount,
	})
	c.JSON(statusFor(out.Code), out)
}

func (h *WorkflowHandler) DraftOffer(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "workflow")
	if !ok {
		return
	}
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	draft, err := h.sup.DraftOffer(c.Request.Context(), id, ownerScope(p), req.Salary)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// Events streams live updates of one workflow as server-sent events.
func (h *WorkflowHandler) Events(c *gin.Context) {
	wf, ok := h.load(c)
	if !ok {
		return
	}
	if h.events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates are not available"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.SSEvent("snapshot", supervisor.NewWorkflowView(wf))
	c.Writer.Flush()

	ch := h.events.Subscribe(ctx, eventbus.WorkflowChannel(wf.ID.String()))
	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case event, open := <-ch:
			if !open {
				return
			}
			c.SSEvent(event.Type, event.Data)
			c.Writer.Flush()
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().Unix())
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (h *WorkflowHandler) Export(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	page, err := h.sup.List(c.Request.Context(), store.WorkflowFilter{CreatedBy: ownerScope(p), Limit: exportLimit})
	if err != nil {
		h.logger.Error("failed to list offer workflows for export", zap.Error(err))
		respondError(c, err)
		return
	}

	data, err := export.Workflows(page.Items)
	if err != nil {
		h.logger.Error("failed to build workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export offer workflows"})
		return
	}

	filename := "offer-workflows-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, export.ContentType, data)
}

// load reads the workflow named by the path, hidden when the principal
// does not own it.
func (h *WorkflowHandler) load(c *gin.Context) (*model.OfferWorkflow, bool) {
	p, ok := principal(c)
	if !ok {
		return nil, false
	}
	id, ok := parseID(c, "workflow")
	if !ok {
		return nil, false
	}
	wf, err := h.sup.Get(c.Request.Context(), id, ownerScope(p))
	if err != nil {
		if offer.Code(err) == offer.CodeInternal {
			h.logger.Error("failed to load offer workflow", zap.String("workflow_id", id.String()), zap.Error(err))
		}
		respondError(c, err)
		return nil, false
	}
	return wf, true
}
