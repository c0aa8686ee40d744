package controllers

import (
	"buffettbackend/clients/http_client"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SearchControllerI interface {
	SearchCompanies(ctx *gin.Context)
}

type searchController struct {
	baseURL string
}

var SearchController SearchControllerI = &searchController{}

func NewSearchController(baseURL string) SearchControllerI {
	return &searchController{baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *searchController) SearchCompanies(ctx *gin.Context) {
	span := sentry.StartSpan(ctx.Request.Context(), "[GIN] SearchCompanies", sentry.WithTransactionName("SearchCompanies"))
	defer span.Finish()

	query := strings.TrimSpace(ctx.Query("q"))
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}

	companies, err := http_client.SearchCompany(span.Context(), s.baseURL, query)
	if err != nil {
		sentry.CaptureException(err)
		zap.L().Error("Company search failed", zap.String("query", query), zap.Error(err))
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Company search failed"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"companies": companies})
}
