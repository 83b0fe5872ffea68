package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parseQuery(query string) Params {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Page: 1, Limit: 50, Offset: 0}},
		{"page=3&limit=20", Params{Page: 3, Limit: 20, Offset: 40}},
		{"page=0&limit=0", Params{Page: 1, Limit: 50, Offset: 0}},
		{"page=-4&limit=1000", Params{Page: 1, Limit: 200, Offset: 0}},
		{"page=abc&limit=xyz", Params{Page: 1, Limit: 50, Offset: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, parseQuery(tt.query))
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 50))
	assert.Equal(t, 1, TotalPages(1, 50))
	assert.Equal(t, 1, TotalPages(50, 50))
	assert.Equal(t, 2, TotalPages(51, 50))
	assert.Equal(t, 0, TotalPages(10, 0))
}

func TestWrap(t *testing.T) {
	page := Normalize(2, 10).Wrap([]string{"a"}, 25)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 2, page.Page)
}
