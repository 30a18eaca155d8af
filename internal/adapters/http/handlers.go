package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/core/usecases"
)

type createSessionRequest struct {
	Title string `json:"title"`
}

type updateSessionRequest struct {
	Title *string         `json:"title"`
	Meta  *domain.MapMeta `json:"meta"`
}

type positionRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func (r positionRequest) point() (domain.GeoPoint, bool) {
	if r.Lat == nil || r.Lon == nil {
		return domain.GeoPoint{}, false
	}
	if *r.Lat < -90 || *r.Lat > 90 || *r.Lon < -180 || *r.Lon > 180 {
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{Lat: *r.Lat, Lon: *r.Lon}, true
}

type updateStationRequest struct {
	Name     *string          `json:"name"`
	Position *positionRequest `json:"position"`
}

type updateLineRequest struct {
	Name     *string `json:"name"`
	LineType *string `json:"line_type"`
}

type lineTypeRequest struct {
	LineType string `json:"line_type"`
}

type controlPointsRequest struct {
	Show bool `json:"show"`
}

// intParam parses a non-negative integer path parameter.
func intParam(c *fiber.Ctx, name string) (int, bool) {
	v, err := strconv.Atoi(c.Params(name))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// parsePosition reads a {lat, lon} body.
func parsePosition(c *fiber.Ctx) (domain.GeoPoint, bool) {
	var req positionRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.GeoPoint{}, false
	}
	return req.point()
}

// editResponse writes the outcome of an intent.
func editResponse(c *fiber.Ctx, res *usecases.EditResult, err error) error {
	if err != nil {
		return errFromDomain(c, err)
	}
	c.Set("Cache-Control", "no-store")
	return c.JSON(res)
}

// ---- Sessions ----

// CreateSessionHandler opens an empty editor session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createSessionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		info, err := deps.Editor.Create(c.UserContext(), req.Title)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/sessions/" + info.ID)
		return c.Status(fiber.StatusCreated).JSON(info)
	}
}

// ListSessionsHandler returns the open sessions.
func ListSessionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": deps.Editor.List(c.UserContext())})
	}
}

// GetSessionHandler returns one session.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		info, err := deps.Editor.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(info)
	}
}

// UpdateSessionHandler changes the title and/or viewport of a session.
func UpdateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req updateSessionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Title == nil && req.Meta == nil {
			return errBadRequest(c, "title or meta is required")
		}
		ctx, id := c.UserContext(), c.Params("id")
		if req.Meta != nil {
			if err := deps.Editor.SetMeta(ctx, id, *req.Meta); err != nil {
				return errFromDomain(c, err)
			}
		}
		if req.Title != nil {
			if _, err := deps.Editor.SetTitle(ctx, id, *req.Title); err != nil {
				return errFromDomain(c, err)
			}
		}
		info, err := deps.Editor.Get(ctx, id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(info)
	}
}

// DeleteSessionHandler closes a session.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Editor.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ---- Intents ----

// PlacePointHandler handles a click on empty map space.
func PlacePointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pos, ok := parsePosition(c)
		if !ok {
			return errBadRequest(c, "lat and lon are required and must be valid coordinates")
		}
		res, err := deps.Editor.PlacePoint(c.UserContext(), c.Params("id"), pos)
		return editResponse(c, res, err)
	}
}

// ClickStationHandler handles a click on a station marker.
func ClickStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid, ok := intParam(c, "sid")
		if !ok {
			return errBadRequest(c, "invalid station id")
		}
		res, err := deps.Editor.ClickStation(c.UserContext(), c.Params("id"), sid)
		return editResponse(c, res, err)
	}
}

// ClickLineHandler handles a click on a drawn line.
func ClickLineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lid, ok := intParam(c, "lid")
		if !ok {
			return errBadRequest(c, "invalid line id")
		}
		pos, ok := parsePosition(c)
		if !ok {
			return errBadRequest(c, "lat and lon are required and must be valid coordinates")
		}
		res, err := deps.Editor.ClickLine(c.UserContext(), c.Params("id"), lid, pos)
		return editResponse(c, res, err)
	}
}

// FinishLineHandler stops drawing the current line.
func FinishLineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := deps.Editor.FinishLine(c.UserContext(), c.Params("id"))
		return editResponse(c, res, err)
	}
}

// ContinueLineHandler makes an existing line the one being drawn.
func ContinueLineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lid, ok := intParam(c, "lid")
		if !ok {
			return errBadRequest(c, "invalid line id")
		}
		res, err := deps.Editor.ContinueLine(c.UserContext(), c.Params("id"), lid)
		return editResponse(c, res, err)
	}
}

// SelectLineTypeHandler picks the line type for new lines.
func SelectLineTypeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req lineTypeRequest
		if err := c.BodyParser(&req); err != nil || req.LineType == "" {
			return errBadRequest(c, "line_type is required")
		}
		res, err := deps.Editor.SelectLineType(c.UserContext(), c.Params("id"), req.LineType)
		return editResponse(c, res, err)
	}
}

// ToggleControlPointsHandler shows or hides curve handles.
func ToggleControlPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req controlPointsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		res, err := deps.Editor.ToggleControlPoints(c.UserContext(), c.Params("id"), req.Show)
		return editResponse(c, res, err)
	}
}

// UpdateStationHandler renames and/or moves a station. Each change is
// recorded as its own undo step.
func UpdateStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid, ok := intParam(c, "sid")
		if !ok {
			return errBadRequest(c, "invalid station id")
		}
		var req updateStationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Name == nil && req.Position == nil {
			return errBadRequest(c, "name or position is required")
		}
		var pos domain.GeoPoint
		if req.Position != nil {
			if pos, ok = req.Position.point(); !ok {
				return errBadRequest(c, "position must be a valid coordinate")
			}
		}

		ctx, id := c.UserContext(), c.Params("id")
		var res *usecases.EditResult
		var err error
		if req.Name != nil {
			if res, err = deps.Editor.RenameStation(ctx, id, sid, *req.Name); err != nil {
				return errFromDomain(c, err)
			}
		}
		if req.Position != nil {
			res, err = deps.Editor.MoveStation(ctx, id, sid, pos)
		}
		return editResponse(c, res, err)
	}
}

// RemoveStationHandler deletes a station from every line.
func RemoveStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid, ok := intParam(c, "sid")
		if !ok {
			return errBadRequest(c, "invalid station id")
		}
		res, err := deps.Editor.RemoveStation(c.UserContext(), c.Params("id"), sid)
		return editResponse(c, res, err)
	}
}

// UncrossStationHandler detaches a station from one of its lines.
func UncrossStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid, ok := intParam(c, "sid")
		if !ok {
			return errBadRequest(c, "invalid station id")
		}
		lid, ok := intParam(c, "lid")
		if !ok {
			return errBadRequest(c, "invalid line id")
		}
		res, err := deps.Editor.UncrossStation(c.UserContext(), c.Params("id"), sid, lid)
		return editResponse(c, res, err)
	}
}

// SuggestNameHandler reverse-geocodes a station and applies a name.
func SuggestNameHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Naming == nil {
			return errUnavailable(c, "station naming is not configured")
		}
		sid, ok := intParam(c, "sid")
		if !ok {
			return errBadRequest(c, "invalid station id")
		}
		res, err := deps.Naming.SuggestName(c.UserContext(), c.Params("id"), sid)
		return editResponse(c, res, err)
	}
}

// UpdateLineHandler renames a line and/or changes its type.
func UpdateLineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lid, ok := intParam(c, "lid")
		if !ok {
			return errBadRequest(c, "invalid line id")
		}
		var req updateLineRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Name == nil && req.LineType == nil {
			return errBadRequest(c, "name or line_type is required")
		}

		ctx, id := c.UserContext(), c.Params("id")
		var res *usecases.EditResult
		var err error
		if req.LineType != nil {
			if res, err = deps.Editor.ChangeLineType(ctx, id, lid, *req.LineType); err != nil {
				return errFromDomain(c, err)
			}
		}
		if req.Name != nil {
			res, err = deps.Editor.RenameLine(ctx, id, lid, *req.Name)
		}
		return editResponse(c, res, err)
	}
}

// RemoveLineHandler deletes a line and the stations only it served.
func RemoveLineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lid, ok := intParam(c, "lid")
		if !ok {
			return errBadRequest(c, "invalid line id")
		}
		res, err := deps.Editor.RemoveLine(c.UserContext(), c.Params("id"), lid)
		return editResponse(c, res, err)
	}
}

// MoveControlPointHandler drags one curve handle.
func MoveControlPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lid, ok := intParam(c, "lid")
		if !ok {
			return errBadRequest(c, "invalid line id")
		}
		idx, ok := intParam(c, "index")
		if !ok {
			return errBadRequest(c, "invalid control point index")
		}
		pos, ok := parsePosition(c)
		if !ok {
			return errBadRequest(c, "lat and lon are required and must be valid coordinates")
		}
		res, err := deps.Editor.MoveControlPoint(c.UserContext(), c.Params("id"), lid, idx, pos)
		return editResponse(c, res, err)
	}
}

// UndoHandler reverts the most recent operation.
func UndoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := deps.Editor.Undo(c.UserContext(), c.Params("id"))
		return editResponse(c, res, err)
	}
}

// RedoHandler reapplies the most recently undone operation.
func RedoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := deps.Editor.Redo(c.UserContext(), c.Params("id"))
		return editResponse(c, res, err)
	}
}

// ---- Views ----

// ExportHandler returns the session as a portable document.
func ExportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := deps.Editor.Export(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		if c.QueryBool("download") {
			c.Attachment(c.Params("id") + ".json")
		}
		c.Set("Cache-Control", "no-cache")
		return c.JSON(doc)
	}
}

// ImportHandler merges a document into the session.
func ImportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := domain.ParseDocument(c.Body())
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		res, err := deps.Editor.Import(c.UserContext(), c.Params("id"), doc)
		return editResponse(c, res, err)
	}
}

// SummaryHandler returns the line listing.
func SummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sum, err := deps.Editor.Summary(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-cache")
		return c.JSON(sum)
	}
}

// RenderHandler returns a full frame for a freshly connected view.
func RenderHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := deps.Editor.Render(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-cache")
		return c.JSON(f)
	}
}

// GeoJSONHandler exports the session as a GeoJSON feature collection.
func GeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fc, err := deps.Editor.GeoJSON(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		data, err := fc.MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Content-Type", "application/geo+json")
		c.Set("Cache-Control", "no-cache")
		return c.Send(data)
	}
}

// LineTypesHandler lists the line-type presets.
func LineTypesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": domain.LineTypes()})
	}
}

// IconHandler serves the SVG marker of a line type or an interchange.
func IconHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Icons == nil {
			return errUnavailable(c, "icons are not configured")
		}
		data, err := deps.Icons.Icon(c.UserContext(), c.Params("kind"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Content-Type", "image/svg+xml")
		return c.Send(data)
	}
}
