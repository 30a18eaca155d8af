package domain

// LineTypeID identifies one of the fixed line-type presets.
type LineTypeID string

const (
	LineTypeU LineTypeID = "u"
	LineTypeS LineTypeID = "s"
)

// CrossingIcon is the asset used for interchanges between lines of different types.
const CrossingIcon = "assets/misc/crossing.svg"

// CrossingIconKind is the icon kind reported for such interchanges.
const CrossingIconKind = "crossing"

// LineType bundles the presentation of a transit mode.
type LineType struct {
	ID         LineTypeID `json:"id"`
	Name       string     `json:"name"`
	Icon       string     `json:"icon"`
	Color      string     `json:"color"`
	NamePrefix string     `json:"name_prefix"`
}

var lineTypes = []LineType{
	{ID: LineTypeU, Name: "U-Bahn", Icon: "assets/u/station.svg", Color: "#115D91", NamePrefix: "U"},
	{ID: LineTypeS, Name: "S-Bahn", Icon: "assets/s/station.svg", Color: "#008e4e", NamePrefix: "S"},
}

// LineTypes returns the catalogue in display order.
func LineTypes() []LineType {
	out := make([]LineType, len(lineTypes))
	copy(out, lineTypes)
	return out
}

// LookupLineType finds a preset by id.
func LookupLineType(id LineTypeID) (LineType, bool) {
	for _, lt := range lineTypes {
		if lt.ID == id {
			return lt, true
		}
	}
	return LineType{}, false
}

// IconPath returns the asset path for an icon kind: a line type id or CrossingIconKind.
func IconPath(kind string) (string, bool) {
	if kind == CrossingIconKind {
		return CrossingIcon, true
	}
	lt, ok := LookupLineType(LineTypeID(kind))
	if !ok {
		return "", false
	}
	return lt.Icon, true
}
