package middleware

import (
	"github.com/danielgtaylor/huma/v2"
)

// Container накапливает middleware для очередной группы операций
type Container struct {
	common huma.Middlewares
	items  huma.Middlewares
}

// NewContainer создает контейнер; common добавляются в начало каждой
// собранной цепочки
func NewContainer(common ...func(huma.Context, func(huma.Context))) *Container {
	return &Container{common: common}
}

// Add добавляет middleware в текущую цепочку
func (mc *Container) Add(mws ...func(ctx huma.Context, next func(huma.Context))) *Container {
	mc.items = append(mc.items, mws...)
	return mc
}

// GetAllAndClear возвращает цепочку (common + добавленные) и очищает ее
func (mc *Container) GetAllAndClear() huma.Middlewares {
	result := make(huma.Middlewares, 0, len(mc.common)+len(mc.items))
	result = append(result, mc.common...)
	result = append(result, mc.items...)
	mc.items = nil
	return result
}
