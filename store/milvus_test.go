package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMilvusFilterExpr(t *testing.T) {
	t.Run("empty filter", func(t *testing.T) {
		assert.Equal(t, "", milvusFilterExpr(nil))
		assert.Equal(t, "", milvusFilterExpr(map[string]any{}))
	})

	t.Run("string values are quoted", func(t *testing.T) {
		expr := milvusFilterExpr(map[string]any{"category": "news"})
		assert.Equal(t, `metadata["category"] == "news"`, expr)
	})

	t.Run("numeric values are bare", func(t *testing.T) {
		expr := milvusFilterExpr(map[string]any{"year": 2024})
		assert.Equal(t, `metadata["year"] == 2024`, expr)
	})

	t.Run("multiple entries join with and in key order", func(t *testing.T) {
		expr := milvusFilterExpr(map[string]any{"b": "two", "a": "one"})
		assert.Equal(t, `metadata["a"] == "one" and metadata["b"] == "two"`, expr)
	})

	t.Run("embedded quotes are escaped", func(t *testing.T) {
		expr := milvusFilterExpr(map[string]any{"title": `say "hi"`})
		assert.Equal(t, `metadata["title"] == "say \"hi\""`, expr)
	})
}
