package supervisor

// Route names a member of the specialist crew, or the decision to stop.
// Knowledge is the zero value on purpose: anything unroutable lands there.
type Route int

const (
	Knowledge Route = iota
	Financing
	DealerMatching
	Sales
	Finish
)

var routeNames = map[Route]string{
	Knowledge:      "knowledge",
	Financing:      "financing",
	DealerMatching: "dealer_matching",
	Sales:          "sales",
	Finish:         "FINISH",
}

func (r Route) String() string {
	if name, ok := routeNames[r]; ok {
		return name
	}
	return "knowledge"
}

// ParseRoute maps a routing decision string onto the closed set of routes.
// Unknown or garbled values fall back to Knowledge rather than failing the
// turn.
func ParseRoute(raw string) Route {
	switch raw {
	case "financing":
		return Financing
	case "dealer_matching":
		return DealerMatching
	case "sales":
		return Sales
	case "knowledge":
		return Knowledge
	case "FINISH", "finish":
		return Finish
	default:
		return Knowledge
	}
}
