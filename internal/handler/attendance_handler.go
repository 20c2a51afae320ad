package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitepulse/tracking-backend-go/internal/models"
	"github.com/sitepulse/tracking-backend-go/internal/service"
	"github.com/sitepulse/tracking-backend-go/pkg/response"
)

// AttendanceHandler handles HTTP requests for attendance tracking
type AttendanceHandler struct {
	tracking *service.TrackingService
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(tracking *service.TrackingService) *AttendanceHandler {
	return &AttendanceHandler{tracking: tracking}
}

// ClockRequest is the shared request body for geofenced attendance actions
type ClockRequest struct {
	WorkerID  string   `json:"workerId" binding:"required"`
	ProjectID string   `json:"projectId" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Accuracy  *float64 `json:"accuracy" binding:"required"`
}

func (r *ClockRequest) coordinate() models.Coordinate {
	return models.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

type attendanceAction func(workerID, projectID string, coord models.Coordinate, accuracy float64) (*models.AttendanceRecord, error)

func (h *AttendanceHandler) handleClockAction(c *gin.Context, action attendanceAction) {
	var req ClockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rec, err := action(req.WorkerID, req.ProjectID, req.coordinate(), *req.Accuracy)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{"status": rec.Status, "record": rec})
}

// ClockIn handles POST /api/v1/attendance/clock-in
func (h *AttendanceHandler) ClockIn(c *gin.Context) {
	h.handleClockAction(c, h.tracking.ClockIn)
}

// ClockOut handles POST /api/v1/attendance/clock-out
func (h *AttendanceHandler) ClockOut(c *gin.Context) {
	h.handleClockAction(c, h.tracking.ClockOut)
}

// LunchStart handles POST /api/v1/attendance/lunch-start
func (h *AttendanceHandler) LunchStart(c *gin.Context) {
	h.handleClockAction(c, h.tracking.LunchStart)
}

// LunchEnd handles POST /api/v1/attendance/lunch-end
func (h *AttendanceHandler) LunchEnd(c *gin.Context) {
	h.handleClockAction(c, h.tracking.LunchEnd)
}

// AbsenceRequest is the request body for the administrative absence path
type AbsenceRequest struct {
	WorkerID  string `json:"workerId" binding:"required"`
	ProjectID string `json:"projectId" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
	Note      string `json:"note"`
	MarkedBy  string `json:"markedBy" binding:"required"`
}

// MarkAbsence handles POST /api/v1/attendance/absence
func (h *AttendanceHandler) MarkAbsence(c *gin.Context) {
	var req AbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rec, err := h.tracking.MarkAbsence(req.WorkerID, req.ProjectID, req.Reason, req.Note, req.MarkedBy)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"status": rec.Status, "record": rec})
}

// EscalateRequest is the request body for escalating a worker's day
type EscalateRequest struct {
	WorkerID  string `json:"workerId" binding:"required"`
	ProjectID string `json:"projectId" binding:"required"`
	MarkedBy  string `json:"markedBy" binding:"required"`
}

// Escalate handles POST /api/v1/attendance/escalate
func (h *AttendanceHandler) Escalate(c *gin.Context) {
	var req EscalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rec, err := h.tracking.Escalate(req.WorkerID, req.ProjectID, req.MarkedBy)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"status": rec.Status, "record": rec})
}

// Today handles GET /api/v1/attendance/today
func (h *AttendanceHandler) Today(c *gin.Context) {
	workerID := c.Query("workerId")
	projectID := c.Query("projectId")

	rec, err := h.tracking.AttendanceToday(workerID, projectID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"status": rec.Status, "record": rec})
}
