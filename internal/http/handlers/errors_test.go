package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-complaints-backend/internal/services"
)

func TestServiceError_Mappings(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", fmt.Errorf("%w: text empty", services.ErrValidation), http.StatusBadRequest, ErrCodeBadRequest},
		{"transition", fmt.Errorf("%w: resolved", services.ErrInvalidTransition), http.StatusConflict, ErrCodeInvalidTransition},
		{"not_found", services.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
		{"gateway", fmt.Errorf("%w: timeout", services.ErrGatewayFailure), http.StatusBadGateway, ErrCodeGatewayFailure},
		{"transport", fmt.Errorf("%w: dial", services.ErrTransport), http.StatusServiceUnavailable, ErrCodeTransportFailure},
		{"other", context.DeadlineExceeded, http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { serviceError(c, tc.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d want %d", w.Code, tc.wantStatus)
			}
			er := decodeError(t, w)
			if er.Code != tc.wantCode {
				t.Fatalf("code=%q want %q", er.Code, tc.wantCode)
			}
			retry := w.Header().Get("Retry-After")
			if errors.Is(tc.err, services.ErrTransport) != (retry != "") {
				t.Fatalf("Retry-After=%q for %v", retry, tc.err)
			}
		})
	}
}
