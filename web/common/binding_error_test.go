package common

import (
	"errors"
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

type loginBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type formBody struct {
	ProjectID int    `form:"projectId" binding:"required,gt=0"`
	Kind      string `form:"kind" binding:"oneof=a b"`
}

func TestFormatBindingError(t *testing.T) {
	bindJSON := func(body string, dst interface{}) error {
		return binding.JSON.BindBody([]byte(body), dst)
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"syntax", bindJSON(`{"email" "x"}`, &loginBody{}), "Invalid JSON"},
		{"type", bindJSON(`{"email": 5, "password": "secret-1"}`, &loginBody{}), "Field 'email' should be of type string"},
		{"required", bindJSON(`{}`, &loginBody{}), "Field 'email' is required, Field 'password' is required"},
		{"email and min", bindJSON(`{"email":"x","password":"abc"}`, &loginBody{}), "Field 'email' must be a valid email, Field 'password' must be at least 6"},
		{"form names", binding.Validator.ValidateStruct(&formBody{Kind: "c"}), "Field 'projectId' is required, Field 'kind' must be one of: a b"},
		{"other", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatBindingError(tt.err)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.True(t, strings.HasPrefix(got, tt.want), got)
		})
	}
}
