package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/finanzas/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineInput struct {
	Role        string `json:"role" binding:"required"`
	Currency    string `json:"currency" binding:"omitempty,currency"`
	StartPeriod int    `json:"start_period" binding:"required,min=1,max=60"`
	EndPeriod   int    `json:"end_period" binding:"periodrange=StartPeriod"`
}

func bindRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.POST("/lines", func(c *gin.Context) {
		var in lineInput
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(in))
	})
	return router
}

func post(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/lines", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleValidationError(t *testing.T) {
	router := bindRouter()

	t.Run("valid line", func(t *testing.T) {
		w := post(router, `{"role":"Ingeniero","currency":"USD","start_period":1,"end_period":12}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("one-time line without end period", func(t *testing.T) {
		w := post(router, `{"role":"Ingeniero","start_period":3}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("end before start", func(t *testing.T) {
		w := post(router, `{"role":"Ingeniero","start_period":6,"end_period":2}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp struct {
			Error struct {
				Code    string                 `json:"code"`
				Details []dto.ValidationDetail `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "end_period", resp.Error.Details[0].Field)
	})

	t.Run("beyond horizon", func(t *testing.T) {
		w := post(router, `{"role":"Ingeniero","start_period":1,"end_period":61}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("unknown currency", func(t *testing.T) {
		w := post(router, `{"role":"Ingeniero","currency":"XYZ","start_period":1}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Unsupported currency")
	})

	t.Run("wrong json type", func(t *testing.T) {
		w := post(router, `{"role":"Ingeniero","start_period":"uno"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "start_period")
	})

	t.Run("not json", func(t *testing.T) {
		w := post(router, `{"role":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidJSON)
	})

	t.Run("empty body", func(t *testing.T) {
		w := post(router, ``)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
