package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeDataLoad, http.StatusBadRequest},
		{CodeValidationFail, http.StatusBadRequest},
		{CodeConfiguration, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeTooLarge, http.StatusRequestEntityTooLarge},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeNoFeasibleSolution, http.StatusUnprocessableEntity},
		{CodeSolverFailed, http.StatusInternalServerError},
		{CodeDatabaseError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus)
		})
	}
}

func TestWrapAndInspect(t *testing.T) {
	cause := errors.New("磁盘错误")
	err := fmt.Errorf("外层: %w", DataLoad("input.json", cause))

	assert.True(t, Is(err, CodeDataLoad))
	assert.False(t, Is(err, CodeConfiguration))
	assert.Equal(t, CodeDataLoad, GetCode(err))
	assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "input.json")

	plain := errors.New("plain")
	assert.Equal(t, CodeUnknown, GetCode(plain))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(plain))

	app := As(plain)
	assert.Equal(t, CodeInternal, app.Code)
	assert.Same(t, app, As(app))
}

func TestValidationErrors(t *testing.T) {
	ve := &ValidationErrors{}
	assert.False(t, ve.HasErrors())
	assert.Equal(t, "验证失败", ve.Error())

	ve.Add("users", "缺少必填字段")
	ve.Addf("blocks", "第 %d 项越界", 2)
	ve.Add("users", "重复")
	require.True(t, ve.HasErrors())

	app := ve.ToAppError()
	assert.Equal(t, CodeValidationFail, app.Code)
	assert.Equal(t, "users: 缺少必填字段", app.Details)
	assert.Equal(t, "缺少必填字段", app.Fields["users"])
	assert.Equal(t, "第 2 项越界", app.Fields["blocks"])

	var target *ValidationErrors
	assert.ErrorAs(t, app, &target)
	assert.Equal(t, "[VALIDATION_FAILED] 验证失败: users - 缺少必填字段 (共 3 项)", app.Error())
}

func TestValidationErrors_SingleError(t *testing.T) {
	ve := &ValidationErrors{}
	ve.Add("days", "缺少必填字段")

	assert.Equal(t, "days - 缺少必填字段", ve.Error())
	assert.Equal(t, "[VALIDATION_FAILED] 验证失败: days - 缺少必填字段", ve.ToAppError().Error())
}
