package http

import (
	"errors"
	"net/http"

	"github.com/wyfcoding/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/riskscoring/internal/scoring/application"
	"github.com/wyfcoding/riskscoring/internal/scoring/domain"
	"github.com/wyfcoding/pkg/logging"
)

// HTTP 处理器
// 负责处理信号评分与公司分数重算相关的 HTTP 请求
type ScoringHandler struct {
	app *application.ScoringService // 评分应用服务
}

// 创建 HTTP 处理器实例
// app: 注入的评分应用服务
func NewScoringHandler(app *application.ScoringService) *ScoringHandler {
	return &ScoringHandler{app: app}
}

// 注册路由
// 将处理器方法绑定到 Gin 路由引擎
func (h *ScoringHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/scoring")
	{
		api.POST("/events/score", h.ScoreEvent)
		api.GET("/keywords/:keyword/category", h.ClassifyKeyword)
		api.POST("/companies/:id/recompute", h.RecomputeCompany)
		api.POST("/companies/recompute", h.RecomputeBatch)
		api.GET("/companies/:id/score", h.GetCompanyScore)
	}
}

// ScoreEvent 对单条信号文本评分
func (h *ScoringHandler) ScoreEvent(c *gin.Context) {
	var req application.ScoreEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", "")
		return
	}

	result := h.app.ScoreEvent(c.Request.Context(), &req)
	response.Success(c, result)
}

// ClassifyKeyword 查询单个关键词的风险类别
func (h *ScoringHandler) ClassifyKeyword(c *gin.Context) {
	keyword := c.Param("keyword")
	if keyword == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "keyword is required", "")
		return
	}

	category := h.app.ClassifyKeyword(keyword)
	response.Success(c, gin.H{"keyword": keyword, "category": category})
}

// RecomputeCompany 触发单个公司的分数重算
func (h *ScoringHandler) RecomputeCompany(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "id is required", "")
		return
	}

	result, err := h.app.RecomputeCompany(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCompanyNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "company not found", "")
			return
		}
		logging.Error(c.Request.Context(), "Failed to recompute company", "id", id, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, result)
}

// RecomputeBatch 批量重算请求体
type RecomputeBatchRequest struct {
	CompanyIDs []string `json:"company_ids" binding:"required,min=1"`
}

// RecomputeBatch 触发多个公司的分数重算
func (h *ScoringHandler) RecomputeBatch(c *gin.Context) {
	var req RecomputeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "company_ids is required", "")
		return
	}

	results, err := h.app.RecomputeAll(c.Request.Context(), req.CompanyIDs)
	if err != nil {
		if errors.Is(err, domain.ErrCompanyNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "company not found", "")
			return
		}
		logging.Error(c.Request.Context(), "Failed to recompute companies", "count", len(req.CompanyIDs), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, results)
}

// GetCompanyScore 查询公司当前分数与类别拆解
func (h *ScoringHandler) GetCompanyScore(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "id is required", "")
		return
	}

	company, categories, err := h.app.GetCompanyScore(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCompanyNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "company not found", "")
			return
		}
		logging.Error(c.Request.Context(), "Failed to get company score", "id", id, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, gin.H{"company": company, "categories": categories})
}
