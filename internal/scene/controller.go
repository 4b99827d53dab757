package scene

// Controller is the entity lifecycle surface handed to producers. It holds
// no state and forwards to the Engine.
type Controller struct {
	engine *Engine
}

// NewController creates a controller for engine.
func NewController(engine *Engine) *Controller {
	return &Controller{engine: engine}
}

func (c *Controller) Add(id, color string) { c.engine.Add(id, color) }

func (c *Controller) Update(id string, position Vec3, trail []Vec3) {
	c.engine.Update(id, position, trail)
}

func (c *Controller) Remove(id string) { c.engine.RemoveByID(id) }
