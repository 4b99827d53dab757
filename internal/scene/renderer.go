package scene

// Kind names a renderable owned by an entity.
type Kind string

const (
	KindMarker Kind = "marker"
	KindTrail  Kind = "trail"
)

// Visibility controls the globe body and its atmosphere shell.
type Visibility string

const (
	Visible Visibility = "visible"
	Hidden  Visibility = "hidden"
)

// Renderer is the drawing backend. Render receives an immutable snapshot
// once per tick; Release tells the backend to free a renderable it may have
// allocated for the entity. Neither may call back into the Engine.
type Renderer interface {
	Render(Frame)
	Release(kind Kind, id string)
}

// PointerSource delivers click events in surface coordinates. The returned
// function detaches the handler.
type PointerSource interface {
	OnClick(handler func(x, y float64)) (detach func())
}

// SelectionFunc is notified on every selection change. An empty id means
// nothing is selected.
type SelectionFunc func(id string)

// Frame is a snapshot of everything a backend needs to draw one frame.
type Frame struct {
	Timestamp float64      `json:"ts"`
	Camera    Camera       `json:"camera"`
	Surface   Surface      `json:"surface"`
	Globe     Globe        `json:"globe"`
	Entities  []EntityView `json:"entities"`
	Selected  string       `json:"selected,omitempty"`
}

// Globe describes the Earth sphere and atmosphere shell.
type Globe struct {
	EarthVisible      bool    `json:"earthVisible"`
	EarthTransparent  bool    `json:"earthTransparent"`
	AtmosphereVisible bool    `json:"atmosphereVisible"`
	EarthRadius       float64 `json:"earthRadius"`
	AtmosphereRadius  float64 `json:"atmosphereRadius"`
}

// EntityView is the render state of one tracked entity. Trail is shared
// with the engine and must not be modified.
type EntityView struct {
	ID       string  `json:"id"`
	Color    string  `json:"color"`
	Position Vec3    `json:"position"`
	Trail    []Vec3  `json:"trail"`
	Glow     float64 `json:"glow"`
	Selected bool    `json:"selected"`
	Radius   float64 `json:"radius"`
}

// nopRenderer discards everything.
type nopRenderer struct{}

func (nopRenderer) Render(Frame)         {}
func (nopRenderer) Release(Kind, string) {}
