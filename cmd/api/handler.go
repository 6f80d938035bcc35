package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	emailrepo "mailflow/internal/email/repository"
	userdomain "mailflow/internal/user/domain"
	userrepo "mailflow/internal/user/repository"
	workflowrepo "mailflow/internal/workflow/repository"
)

// Handler serves the read-only inspection endpoints over the stored
// workflows, runs and folders.
type Handler struct {
	users     userrepo.UserRepository
	folders   emailrepo.FolderRepository
	workflows workflowrepo.WorkflowRepository
}

func NewHandler(users userrepo.UserRepository, folders emailrepo.FolderRepository, workflows workflowrepo.WorkflowRepository) *Handler {
	return &Handler{users: users, folders: folders, workflows: workflows}
}

func (h *Handler) ListWorkflows(c *gin.Context) {
	workflows, err := h.workflows.ListWorkflows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflows": workflows})
}

func (h *Handler) ListRuns(c *gin.Context) {
	workflowID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow id"})
		return
	}
	runs, err := h.workflows.ListRuns(uint(workflowID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *Handler) ListRunActivities(c *gin.Context) {
	runID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}
	activities, err := h.workflows.ListActivities(uint(runID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

func (h *Handler) ListFolders(c *gin.Context) {
	address := c.Query("user")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user query parameter is required"})
		return
	}
	user, err := h.users.GetByEmail(address)
	if err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	folders, err := h.folders.GetAll(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}
