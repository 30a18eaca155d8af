package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	lineTypeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LineType",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"icon":        &graphql.Field{Type: graphql.String},
			"color":       &graphql.Field{Type: graphql.String},
			"name_prefix": &graphql.Field{Type: graphql.String},
		},
	})

	lineStationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LineStation",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.Int},
			"name": &graphql.Field{Type: graphql.String},
		},
	})

	lineType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Line",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.Int},
			"name":      &graphql.Field{Type: graphql.String},
			"line_type": &graphql.Field{Type: graphql.String},
			"color":     &graphql.Field{Type: graphql.String},
			"circle":    &graphql.Field{Type: graphql.Boolean},
			"stations":  &graphql.Field{Type: graphql.NewList(lineStationType)},
		},
	})

	stationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Station",
		Fields: graphql.Fields{
			"station_id": &graphql.Field{Type: graphql.Int},
			"name":       &graphql.Field{Type: graphql.String},
			"position":   &graphql.Field{Type: geoPointType},
			"icon_kind":  &graphql.Field{Type: graphql.String},
			"cross":      &graphql.Field{Type: graphql.Boolean},
			"lines":      &graphql.Field{Type: graphql.NewList(graphql.Int)},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"title":         &graphql.Field{Type: graphql.String},
			"revision":      &graphql.Field{Type: graphql.Int},
			"line_count":    &graphql.Field{Type: graphql.Int},
			"station_count": &graphql.Field{Type: graphql.Int},
			"drawing":       &graphql.Field{Type: graphql.Int},
			"line_type":     &graphql.Field{Type: graphql.String},
			"can_undo":      &graphql.Field{Type: graphql.Boolean},
			"can_redo":      &graphql.Field{Type: graphql.Boolean},
			"lines":         &graphql.Field{Type: graphql.NewList(lineType)},
			"stations":      &graphql.Field{Type: graphql.NewList(stationType)},
		},
	})

	savedMapType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SavedMap",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"title":         &graphql.Field{Type: graphql.String},
			"revision":      &graphql.Field{Type: graphql.Int},
			"line_count":    &graphql.Field{Type: graphql.Int},
			"station_count": &graphql.Field{Type: graphql.Int},
			"updated_at":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"lineTypes": &graphql.Field{
				Type:        graphql.NewList(lineTypeType),
				Description: "Line-type presets",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return domain.LineTypes(), nil
				},
			},
			"sessions": &graphql.Field{
				Type:        graphql.NewList(sessionType),
				Description: "Open editor sessions (without lines and stations)",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					infos := deps.Editor.List(p.Context)
					out := make([]map[string]interface{}, len(infos))
					for i, info := range infos {
						out[i] = sessionFields(info)
					}
					return out, nil
				},
			},
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "One editor session with its lines and stations",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					info, err := deps.Editor.Get(p.Context, id)
					if err != nil {
						return nil, err
					}
					sum, err := deps.Editor.Summary(p.Context, id)
					if err != nil {
						return nil, err
					}
					frame, err := deps.Editor.Render(p.Context, id)
					if err != nil {
						return nil, err
					}
					m := sessionFields(*info)
					m["drawing"] = sum.Drawing
					m["line_type"] = string(sum.LineType)
					m["can_undo"] = sum.CanUndo
					m["can_redo"] = sum.CanRedo
					m["lines"] = sum.Lines
					m["stations"] = frame.Stations
					return m, nil
				},
			},
			"savedMaps": &graphql.Field{
				Type:        graphql.NewList(savedMapType),
				Description: "Saved maps, most recently updated first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Maps == nil {
						return nil, nil
					}
					offset, limit := clampPage(p.Args["offset"].(int), p.Args["limit"].(int))
					maps, _, err := deps.Maps.List(p.Context, offset, limit)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, len(maps))
					for i, m := range maps {
						out[i] = map[string]interface{}{
							"id":            m.ID,
							"title":         m.Title,
							"revision":      int(m.Revision),
							"line_count":    m.LineCount,
							"station_count": m.StationCount,
							"updated_at":    m.UpdatedAt,
						}
					}
					return out, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func sessionFields(info usecases.SessionInfo) map[string]interface{} {
	return map[string]interface{}{
		"id":            info.ID,
		"title":         info.Title,
		"revision":      int(info.Revision),
		"line_count":    info.LineCount,
		"station_count": info.StationCount,
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
