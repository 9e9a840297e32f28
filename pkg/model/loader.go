package model

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	apperrors "github.com/paiban/planner/pkg/errors"
)

// Load 读取并校验输入文件
func Load(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.DataLoad(path, err)
	}
	return Decode(path, data)
}

// Parse 从 reader 读取并校验输入文档
func Parse(r io.Reader) (*Schedule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.DataLoad("input", err)
	}
	return Decode("input", data)
}

// Decode 解码并校验输入文档
// 非法JSON为数据加载错误，类型或形状不符为验证错误
func Decode(source string, data []byte) (*Schedule, error) {
	if !json.Valid(data) {
		return nil, apperrors.DataLoad(source, errInvalidJSON)
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeValidationFail, "输入文档结构不符").
			WithDetails(err.Error())
	}
	return NewSchedule(&in)
}

var errInvalidJSON = errors.New("不是合法的JSON")
