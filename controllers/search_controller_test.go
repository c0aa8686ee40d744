package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSearchCompanies(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/company/search/", r.URL.Path)
		assert.Equal(t, "Tata Consultancy Ltd", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`[{"id": 7, "name": "TCS", "url": "/company/TCS/"}]`))
	}))
	defer upstream.Close()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/search", NewSearchController(upstream.URL+"/").SearchCompanies)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?q=Tata+Consultancy+Limited", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"companies": [{"id": 7, "name": "TCS", "url": "/company/TCS/"}]}`, w.Body.String())
}

func TestSearchCompanies_MissingQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/search", NewSearchController("http://127.0.0.1:1").SearchCompanies)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchCompanies_UpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/search", NewSearchController(upstream.URL).SearchCompanies)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?q=TCS", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
