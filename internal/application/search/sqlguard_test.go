package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSQLAccepts(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{
			"标准命名参数模板",
			`SELECT p.id, p.name, p.price FROM products p WHERE p."categoryId" = c.id AND p.name ILIKE @feature1 LIMIT @limit`,
		},
		{
			"字面 LIMIT",
			"SELECT id, name FROM products WHERE price < 100 LIMIT 10",
		},
		{
			"小写语句",
			"select id from products limit 5",
		},
		{
			"列名包含黑名单子串",
			`SELECT id, "updatedAt", dropdown_label FROM products LIMIT @limit`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, ValidateSQL(tt.sql))
		})
	}
}

func TestValidateSQLRejects(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"空语句", "   "},
		{"非 SELECT 开头", "UPDATE products SET price = 0 LIMIT 1"},
		{"WITH 开头", "WITH x AS (SELECT 1) SELECT * FROM x LIMIT 1"},
		{"内嵌 DROP", "SELECT id FROM products; DROP TABLE products; -- LIMIT 1"},
		{"DELETE 关键字", "SELECT id FROM products WHERE id IN (DELETE FROM products) LIMIT 1"},
		{"UNION 外带", "SELECT id FROM products UNION SELECT password FROM users LIMIT 1"},
		{"INTO OUTFILE", "SELECT id INTO OUTFILE '/tmp/x' FROM products LIMIT 1"},
		{"缺 LIMIT", "SELECT id, name FROM products WHERE price < 100"},
		{"LIMIT 非法参数", "SELECT id FROM products LIMIT @n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSQL(tt.sql)
			require.ErrorIs(t, err, ErrUnsafeSQL)
		})
	}
}
