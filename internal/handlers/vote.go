package handlers

import (
	"net/http"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes *services.VoteService
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// voteRequest.VoteType is true for an upvote, false for a downvote. A
// pointer so that false still satisfies required.
type voteRequest struct {
	VoteType *bool `json:"vote_type" binding:"required"`
}

func (h *VoteHandler) VotePost(c *gin.Context) {
	h.cast(c, models.TargetPost)
}

func (h *VoteHandler) VoteComment(c *gin.Context) {
	h.cast(c, models.TargetComment)
}

func (h *VoteHandler) cast(c *gin.Context, targetType models.TargetType) {
	var req voteRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.votes.CastVote(c.Request.Context(), middleware.CallerID(c), c.Param("id"), targetType, *req.VoteType)
	if err != nil {
		RespondError(c, err)
		return
	}
	status := http.StatusOK
	if result.Outcome == services.VoteCreated {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h *VoteHandler) Cancel(c *gin.Context) {
	vote, err := h.votes.CancelVote(c.Request.Context(), middleware.CallerID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vote": vote})
}

func (h *VoteHandler) CountPost(c *gin.Context) {
	h.count(c, models.TargetPost)
}

func (h *VoteHandler) CountComment(c *gin.Context) {
	h.count(c, models.TargetComment)
}

func (h *VoteHandler) count(c *gin.Context, targetType models.TargetType) {
	counts, err := h.votes.CountVotes(c.Request.Context(), c.Param("id"), targetType)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *VoteHandler) ListPost(c *gin.Context) {
	h.list(c, models.TargetPost)
}

func (h *VoteHandler) ListComment(c *gin.Context) {
	h.list(c, models.TargetComment)
}

// list accepts ?filter=up|down and ?user_id=.
func (h *VoteHandler) list(c *gin.Context, targetType models.TargetType) {
	filter := services.VoteFilter{UserID: c.Query("user_id")}
	switch c.Query("filter") {
	case "":
	case "up":
		up := true
		filter.Upvote = &up
	case "down":
		down := false
		filter.Upvote = &down
	default:
		writeError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "filter must be up or down")
		return
	}

	votes, err := h.votes.ListVotes(c.Request.Context(), c.Param("id"), targetType, filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes})
}
