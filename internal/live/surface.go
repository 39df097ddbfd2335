package live

// Kind names one of the two charts of a live session.
type Kind string

const (
	KindPercent Kind = "percent"
	KindPrice   Kind = "price"
)

// Title returns the chart heading.
func (k Kind) Title() string {
	if k == KindPercent {
		return "Live % Change"
	}
	return "Live USD Price"
}

// Axis returns the y-axis label.
func (k Kind) Axis() string {
	if k == KindPercent {
		return "% Change"
	}
	return "USD"
}

// Series is the points of one symbol as a chart consumes them.
type Series struct {
	Name string  `json:"name"`
	Data []Point `json:"data"`
}

// Surface renders one chart. Mount is called once when polling starts, Update
// after every accepted tick, and Destroy exactly once when the session stops.
type Surface interface {
	Mount(series []Series) error
	Update(series []Series) error
	Destroy()
}

type nopSurface struct{}

func (nopSurface) Mount([]Series) error  { return nil }
func (nopSurface) Update([]Series) error { return nil }
func (nopSurface) Destroy()              {}
