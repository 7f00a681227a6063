package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kylemckinstry/rostretto/internal/cycle"
	"github.com/kylemckinstry/rostretto/internal/feedback"
	"github.com/kylemckinstry/rostretto/internal/models"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, orch *cycle.Orchestrator) {
	router.GET("/health", handleHealth(db))
	router.GET("/workers", handleWorkers(db))
	router.GET("/shifts/:week", handleShifts(db))
	router.GET("/schedule/:week", handleSchedule(db))
	router.GET("/periods/:week", handlePeriod(db))

	router.POST("/schedule/run", handleRunSchedule(orch))
	router.POST("/feedback", handleFeedback(db))
}

func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var n int64
		if err := db.Model(&models.Worker{}).Count(&n).Error; err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "workers": n})
	}
}

func handleWorkers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var workers []models.Worker
		if err := db.Order("id").Find(&workers).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, workers)
	}
}

func handleShifts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var slots []models.ShiftSlot
		if err := db.Where("week_id = ?", c.Param("week")).
			Order("date, start_time, id").Find(&slots).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, slots)
	}
}

func handleSchedule(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var records []models.Assignment
		if err := db.Where("week_id = ?", c.Param("week")).
			Order("shift_id, worker_id").Find(&records).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(records) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "no schedule for week " + c.Param("week")})
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

func handlePeriod(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var period models.Period
		err := db.Where("week_id = ?", c.Param("week")).First(&period).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no period for week " + c.Param("week")})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, period)
	}
}

type runRequest struct {
	WeekID string `json:"weekId" binding:"required"`
}

func handleRunSchedule(orch *cycle.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req runRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		period, err := orch.RunGeneration(c.Request.Context(), req.WeekID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		status := http.StatusOK
		if period.Stage == models.StageInfeasible {
			status = http.StatusConflict
		}
		c.JSON(status, period)
	}
}

type feedbackRequest struct {
	ShiftID      uint    `json:"shiftId" binding:"required"`
	EmployeeID   uint    `json:"employeeId" binding:"required"`
	Rating       int     `json:"rating" binding:"required"`
	Traffic      string  `json:"traffic" binding:"required"`
	Comment      string  `json:"comment"`
	Tags         string  `json:"tags"`
	Present      *bool   `json:"present"` // omitted means attended
	SupersedesID *string `json:"supersedesId"`
}

func handleFeedback(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req feedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fb := models.Feedback{
			ShiftID:      req.ShiftID,
			WorkerID:     req.EmployeeID,
			Rating:       req.Rating,
			Traffic:      req.Traffic,
			Comment:      req.Comment,
			Tags:         req.Tags,
			Present:      req.Present == nil || *req.Present,
			SupersedesID: req.SupersedesID,
		}
		if err := feedback.Ingest(db, &fb, time.Now()); err != nil {
			var verr *feedback.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "field": verr.Field})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, fb)
	}
}
