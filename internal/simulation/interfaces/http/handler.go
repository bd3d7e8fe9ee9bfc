package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/wyfcoding/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/riskscoring/internal/simulation/application"
	"github.com/wyfcoding/riskscoring/internal/simulation/domain"
	"github.com/wyfcoding/pkg/logging"
)

// HTTP 处理器
// 负责处理级联推演与情景管理相关的 HTTP 请求
type SimulationHandler struct {
	app *application.SimulationService // 推演应用服务
}

// 创建 HTTP 处理器实例
// app: 注入的推演应用服务
func NewSimulationHandler(app *application.SimulationService) *SimulationHandler {
	return &SimulationHandler{app: app}
}

// 注册路由
// 将处理器方法绑定到 Gin 路由引擎
func (h *SimulationHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/simulation")
	{
		api.POST("/simulate", h.Simulate)
		api.POST("/scenarios", h.SaveScenario)
		api.GET("/scenarios", h.ListScenarios)
		api.GET("/scenarios/:id", h.GetScenario)
		api.POST("/scenarios/:id/run", h.RunScenario)
		api.DELETE("/cache", h.ClearCache)
	}
}

// Simulate 对请求体中的情景执行一次推演
func (h *SimulationHandler) Simulate(c *gin.Context) {
	var scenario domain.ScenarioConfig
	if err := c.ShouldBindJSON(&scenario); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid scenario body", "")
		return
	}

	results, err := h.app.Simulate(c.Request.Context(), scenario)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to run simulation", "scenario", scenario.Name, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, results)
}

// SaveScenario 保存情景
func (h *SimulationHandler) SaveScenario(c *gin.Context) {
	var scenario domain.ScenarioConfig
	if err := c.ShouldBindJSON(&scenario); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid scenario body", "")
		return
	}

	id, err := h.app.SaveScenario(c.Request.Context(), scenario)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to save scenario", "scenario", scenario.Name, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, gin.H{"id": id})
}

// ListScenarios 列出已保存的情景
func (h *SimulationHandler) ListScenarios(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid limit", "")
		return
	}

	offsetStr := c.DefaultQuery("offset", "0")
	offset, err := strconv.Atoi(offsetStr)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid offset", "")
		return
	}

	scenarios, err := h.app.ListScenarios(c.Request.Context(), limit, offset)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to list scenarios", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, scenarios)
}

// GetScenario 读取情景配置
func (h *SimulationHandler) GetScenario(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "id is required", "")
		return
	}

	scenario, err := h.app.GetScenario(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrScenarioNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "scenario not found", "")
			return
		}
		logging.Error(c.Request.Context(), "Failed to get scenario", "id", id, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, scenario)
}

// RunScenario 对已保存的情景执行一次推演
func (h *SimulationHandler) RunScenario(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "id is required", "")
		return
	}

	results, err := h.app.RunScenario(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrScenarioNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "scenario not found", "")
			return
		}
		logging.Error(c.Request.Context(), "Failed to run scenario", "id", id, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, results)
}

// ClearCache 清空推演结果缓存
func (h *SimulationHandler) ClearCache(c *gin.Context) {
	if err := h.app.ClearCache(c.Request.Context()); err != nil {
		logging.Error(c.Request.Context(), "Failed to clear simulation cache", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, gin.H{"cleared": true})
}
