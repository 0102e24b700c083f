package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"SafeTrail/pkg/errors"
	"SafeTrail/pkg/response"
)

// EvidenceBySubject returns the evidence rows for one identity, oldest
// first.
func (h *Handlers) EvidenceBySubject(c *gin.Context) {
	subject := c.Param("subject")
	entries, err := h.chain.BySubject(c.Request.Context(), subject)
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, errors.GetCode(err), "evidence read failed")
		return
	}
	response.Success(c, "evidence", entries)
}

// VerifyEvidence recomputes every entry hash and reports the first
// mismatch, if any. The log is never repaired.
func (h *Handlers) VerifyEvidence(c *gin.Context) {
	bad, err := h.chain.Verify(c.Request.Context())
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, errors.GetCode(err), "verification failed")
		return
	}
	if bad != nil {
		c.JSON(http.StatusConflict, response.Body{
			Code:    errors.CodeLogIntegrity,
			Message: "evidence log integrity violation",
			Data:    bad,
		})
		return
	}
	response.Success(c, "evidence log verified", nil)
}
