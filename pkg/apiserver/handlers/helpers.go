package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/simplifyhr/offerflow/pkg/apiserver/middleware"
	"github.com/simplifyhr/offerflow/pkg/auth"
	"github.com/simplifyhr/offerflow/pkg/offer"
)

const maxPageSize = 200

func parseLimit(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	if parsed > maxPageSize {
		return maxPageSize
	}
	return parsed
}

func parseOffset(value string) int {
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " id"})
		return uuid.Nil, false
	}
	return id, true
}

func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return p, ok
}

// ownerScope limits reads to the principal's own workflows. Admins see all.
func ownerScope(p auth.Principal) string {
	if p.IsAdmin() {
		return ""
	}
	return p.UserID
}

// statusFor maps an engine error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case offer.CodeValidation:
		return http.StatusBadRequest
	case offer.CodeNotSelected:
		return http.StatusUnprocessableEntity
	case offer.CodeWorkflowTerminal, offer.CodeConflict, offer.CodeDuplicateWorkflow:
		return http.StatusConflict
	case offer.CodeGateway:
		return http.StatusBadGateway
	case offer.CodeNotFound:
		return http.StatusNotFound
	case "":
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := offer.Code(err)
	c.JSON(statusFor(code), gin.H{"error": offer.Message(err), "code": code})
}
