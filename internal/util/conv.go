package util

import (
	"fmt"
	"strconv"
	"strings"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParseRef 解析带前缀或纯数字的标识，如 "q12"、"level-3"、"12"
func ParseRef(ref, prefix string) (uint, error) {
	s := strings.TrimSpace(ref)
	if prefix != "" {
		s = strings.TrimPrefix(s, prefix)
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return uint(id), nil
}

// ParseQuestionRef 题目标识 "q123" 或 "123"
func ParseQuestionRef(ref string) (uint, error) {
	return ParseRef(ref, "q")
}

// ParseLevelRef 关卡标识 "level-3" 或 "3"
func ParseLevelRef(ref string) (uint, error) {
	return ParseRef(ref, "level-")
}

// PageParams 规范化分页参数
func PageParams(pageStr, limitStr string) (int, int) {
	page, _ := strconv.Atoi(pageStr)
	limit, _ := strconv.Atoi(limitStr)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
