package middleware

import (
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
)

func noop(ctx huma.Context, next func(huma.Context)) { next(ctx) }

func TestContainer_GetAllAndClear(t *testing.T) {
	c := NewContainer(noop)

	first := c.Add(noop, noop).GetAllAndClear()
	assert.Len(t, first, 3)

	second := c.GetAllAndClear()
	assert.Len(t, second, 1, "common middleware survives clear")

	// изменение выданной цепочки не влияет на контейнер
	second[0] = nil
	assert.NotNil(t, c.GetAllAndClear()[0])
}
