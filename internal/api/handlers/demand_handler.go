package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/service"
)

type DemandHandler struct {
	service *service.DemandService
}

func NewDemandHandler(service *service.DemandService) *DemandHandler {
	return &DemandHandler{service: service}
}

// ProcessUpload accepts a consumption CSV (multipart field "file") and an
// optional JSON array of stock positions (field "stocks"), runs the full
// pipeline synchronously and returns the run record.
func (h *DemandHandler) ProcessUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing csv file", "details": err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload", "details": err.Error()})
		return
	}
	defer file.Close()

	var stocks []domain.StockPosition
	if raw := strings.TrimSpace(c.PostForm("stocks")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &stocks); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stocks payload", "details": err.Error()})
			return
		}
	}

	run, err := h.service.Process(c.Request.Context(), file, stocks, nil)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if run == nil {
			status = http.StatusBadRequest
		}
		payload := gin.H{"error": err.Error()}
		if run != nil {
			payload["run"] = run
		}
		c.JSON(status, payload)
		return
	}

	c.JSON(http.StatusOK, run)
}

// IngestForecast accepts a forecast sheet (multipart field "file") plus
// year, source and version form fields, normalizes it and upserts the rows.
func (h *DemandHandler) IngestForecast(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing csv file", "details": err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload", "details": err.Error()})
		return
	}
	defer file.Close()

	year, err := strconv.Atoi(c.DefaultPostForm("year", strconv.Itoa(time.Now().Year())))
	if err != nil || year < 2000 || year > 2100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}

	source := strings.TrimSpace(c.DefaultPostForm("source", "upload"))

	version, err := strconv.Atoi(c.DefaultPostForm("version", "1"))
	if err != nil || version < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
		return
	}

	result, err := h.service.IngestForecast(c.Request.Context(), file, year, source, version)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *DemandHandler) parseFilter(c *gin.Context) (domain.AnalysisFilter, error) {
	filter := domain.AnalysisFilter{Limit: 20}

	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && limit > 0 && limit <= 200 {
		filter.Limit = limit
	}

	parseDate := func(param string) (*time.Time, error) {
		value := strings.TrimSpace(c.Query(param))
		if value == "" {
			return nil, nil
		}
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return &t, nil
		}
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}

	from, err := parseDate("from")
	if err != nil {
		return filter, errors.New("invalid from date")
	}
	filter.From = from

	to, err := parseDate("to")
	if err != nil {
		return filter, errors.New("invalid to date")
	}
	filter.To = to

	filter.ClientID = strings.TrimSpace(c.Query("client_id"))
	filter.PartNum = strings.TrimSpace(c.Query("part_num"))
	filter.Status = strings.ToLower(strings.TrimSpace(c.Query("status")))
	filter.Cursor = strings.TrimSpace(c.Query("cursor"))

	return filter, nil
}

func (h *DemandHandler) ListAnalyses(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summaries, next, err := h.service.ListAnalyses(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list analyses", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analyses":    summaries,
		"next_cursor": next,
	})
}

func (h *DemandHandler) GetAnalysis(c *gin.Context) {
	id := c.Param("id")

	result, err := h.service.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch analysis", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *DemandHandler) ListForecasts(c *gin.Context) {
	id := c.Param("id")

	forecasts, err := h.service.ListForecasts(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch forecasts", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"forecasts": forecasts})
}

func (h *DemandHandler) ListAlerts(c *gin.Context) {
	id := c.Param("id")
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if status != "" && status != domain.AlertOpen && status != domain.AlertResolved {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert status"})
		return
	}

	alerts, err := h.service.ListAlerts(c.Request.Context(), id, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *DemandHandler) ListRows(c *gin.Context) {
	clientID := strings.TrimSpace(c.Query("client_id"))
	partID := strings.TrimSpace(c.Query("part_id"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "500"))

	rows, err := h.service.ListDemandRows(c.Request.Context(), clientID, partID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch demand rows", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": rows})
}
