package search

import (
	"fmt"
	"regexp"
	"strings"
)

// blockedKeywords 生成 SQL 中禁止出现的变更/外带关键字
var blockedKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "TRUNCATE",
	"EXEC", "EXECUTE", "UNION", "INTO", "OUTFILE", "DUMPFILE",
}

var (
	wordPattern  = regexp.MustCompile(`[A-Z_]+`)
	limitPattern = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+|:limit|@limit)\b`)
)

// ValidateSQL 对 LLM 生成的 SQL 做形状与黑名单校验。
// 这只是最小防线，不是解析器：执行端仍然只绑定叶子值参数。
func ValidateSQL(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return fmt.Errorf("%w: empty statement", ErrUnsafeSQL)
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") {
		return fmt.Errorf("%w: statement must begin with SELECT", ErrUnsafeSQL)
	}

	// 按词匹配，避免把列名里的子串误判为关键字
	words := wordPattern.FindAllString(upper, -1)
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		seen[w] = true
	}
	for _, kw := range blockedKeywords {
		if seen[kw] {
			return fmt.Errorf("%w: blocked keyword %s", ErrUnsafeSQL, kw)
		}
	}

	if !limitPattern.MatchString(trimmed) {
		return fmt.Errorf("%w: statement missing LIMIT clause", ErrUnsafeSQL)
	}

	return nil
}
