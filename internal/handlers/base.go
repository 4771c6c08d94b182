package handlers

import (
	"errors"
	"log"
	"net/http"

	"agora/internal/services"
	"agora/internal/utils"

	"github.com/gin-gonic/gin"
)

// RespondError writes err as {"error": {"code", "message"}}. Domain errors
// keep their status; anything else is a store failure and is logged.
func RespondError(c *gin.Context, err error) {
	var de *services.DomainError
	if errors.As(err, &de) {
		writeError(c, de.Status, de.Code, de.Message)
		return
	}
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	writeError(c, http.StatusInternalServerError, "STORE_ERROR", "internal error")
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// bind decodes the JSON body into obj and answers 422 when it does not fit.
func bind(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		writeError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return false
	}
	return true
}

// page reads ?page=, defaulting to 1.
func page(c *gin.Context) int {
	if p := utils.StringToInt(c.Query("page"), 1); p > 0 {
		return p
	}
	return 1
}
