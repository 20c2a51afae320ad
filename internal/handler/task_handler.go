package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitepulse/tracking-backend-go/internal/models"
	"github.com/sitepulse/tracking-backend-go/internal/service"
	"github.com/sitepulse/tracking-backend-go/pkg/response"
)

// TaskHandler handles HTTP requests for task assignment tracking
type TaskHandler struct {
	tracking *service.TrackingService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tracking *service.TrackingService) *TaskHandler {
	return &TaskHandler{tracking: tracking}
}

// TaskActionRequest is the request body for geofenced task transitions
type TaskActionRequest struct {
	WorkerID  string   `json:"workerId" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Accuracy  *float64 `json:"accuracy" binding:"required"`
}

func (r *TaskActionRequest) coordinate() models.Coordinate {
	return models.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

func taskResponse(c *gin.Context, result *service.TaskResult) {
	body := gin.H{
		"status":     result.Assignment.Status,
		"assignment": result.Assignment,
	}
	if result.AutoPaused != "" {
		body["autoPaused"] = result.AutoPaused
	}
	response.Success(c, body)
}

// Start handles POST /api/v1/tasks/:id/start
func (h *TaskHandler) Start(c *gin.Context) {
	var req TaskActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.tracking.StartTask(req.WorkerID, c.Param("id"), req.coordinate(), *req.Accuracy)
	if err != nil {
		response.FromError(c, err)
		return
	}
	taskResponse(c, result)
}

// PauseRequest is the request body for pausing a task (no location proof)
type PauseRequest struct {
	WorkerID string `json:"workerId" binding:"required"`
	Reason   string `json:"reason"`
}

// Pause handles POST /api/v1/tasks/:id/pause
func (h *TaskHandler) Pause(c *gin.Context) {
	var req PauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.tracking.PauseTask(req.WorkerID, c.Param("id"), req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}
	taskResponse(c, result)
}

// Resume handles POST /api/v1/tasks/:id/resume
func (h *TaskHandler) Resume(c *gin.Context) {
	var req TaskActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.tracking.ResumeTask(req.WorkerID, c.Param("id"), req.coordinate(), *req.Accuracy)
	if err != nil {
		response.FromError(c, err)
		return
	}
	taskResponse(c, result)
}

// CompleteRequest is the request body for completing a task
type CompleteRequest struct {
	WorkerID     string   `json:"workerId" binding:"required"`
	ActualOutput *float64 `json:"actualOutput" binding:"required"`
}

// Complete handles POST /api/v1/tasks/:id/complete
func (h *TaskHandler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.tracking.CompleteTask(req.WorkerID, c.Param("id"), *req.ActualOutput)
	if err != nil {
		response.FromError(c, err)
		return
	}
	taskResponse(c, result)
}

// ProgressRequest is the request body for reporting task output
type ProgressRequest struct {
	WorkerID string   `json:"workerId" binding:"required"`
	Output   *float64 `json:"output" binding:"required"`
}

// Progress handles POST /api/v1/tasks/:id/progress
func (h *TaskHandler) Progress(c *gin.Context) {
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.tracking.UpdateTaskProgress(req.WorkerID, c.Param("id"), *req.Output)
	if err != nil {
		response.FromError(c, err)
		return
	}
	taskResponse(c, result)
}

// List handles GET /api/v1/tasks
func (h *TaskHandler) List(c *gin.Context) {
	workerID := c.Query("workerId")
	date := c.Query("date")

	tasks, err := h.tracking.TasksForDay(workerID, date)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"tasks": tasks})
}

// Get handles GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	workerID := c.Query("workerId")

	detail, err := h.tracking.TaskDetail(workerID, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, detail)
}
