package util

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: blank", ErrValidation), http.StatusBadRequest},
		{ErrInvalidReference, http.StatusBadRequest},
		{ErrUnsupportedQuestionType, http.StatusBadRequest},
		{ErrInvalidPin, http.StatusBadRequest},
		{ErrQuestionNotFound, http.StatusNotFound},
		{ErrNoHint, http.StatusNotFound},
		{ErrDuplicateSubmission, http.StatusConflict},
		{ErrReviewClosed, http.StatusConflict},
		{ErrAttemptsExhausted, http.StatusUnprocessableEntity},
		{ErrMysteryInactive, http.StatusForbidden},
		{ErrHintThrottled, http.StatusTooManyRequests},
		{fmt.Errorf("%w: put", ErrCollaboratorFailure), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		RespondError(c, tt.err)
		assert.Equal(t, tt.want, w.Code, tt.err.Error())
	}
}
