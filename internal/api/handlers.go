package api

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/dinahmaccodes/stellar-insights/internal/corridors"
)

func (s *Server) handleListAnchors(c fiber.Ctx) error {
	limit, offset, err := s.parsePagination(c)
	if err != nil {
		return err
	}

	resp, err := s.anchors.List(c.RequestCtx(), limit, offset)
	if err != nil {
		return InternalError(err.Error())
	}
	return c.JSON(resp)
}

// handleListCorridors returns the filtered corridor page. A sort_by
// parameter is accepted for compatibility but not applied.
func (s *Server) handleListCorridors(c fiber.Ctx) error {
	limit, offset, err := s.parsePagination(c)
	if err != nil {
		return err
	}

	filter, err := parseCorridorFilter(c)
	if err != nil {
		return err
	}

	list, err := s.corridors.List(c.RequestCtx(), limit, offset, filter)
	if err != nil {
		return InternalError(err.Error())
	}
	if list == nil {
		list = []corridors.Corridor{}
	}
	return c.JSON(list)
}

func (s *Server) handleCorridorDetail(c fiber.Ctx) error {
	return NotFound("Corridor detail endpoint not yet implemented with RPC")
}

// parsePagination reads limit and offset, applying the configured
// default and cap. Values must be non-negative integers.
func (s *Server) parsePagination(c fiber.Ctx) (int, int, error) {
	limit := s.defaultLimit
	offset := 0

	queries := c.Queries()
	if raw, ok := queries["limit"]; ok {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, BadRequest("invalid limit parameter")
		}
		limit = v
	}
	if raw, ok := queries["offset"]; ok {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, BadRequest("invalid offset parameter")
		}
		offset = v
	}

	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit, offset, nil
}

// parseCorridorFilter reads the optional corridor filters. A parameter
// that is present but empty stays present: ?asset_code= filters on the
// empty string rather than being dropped.
func parseCorridorFilter(c fiber.Ctx) (corridors.Filter, error) {
	queries := c.Queries()

	var filter corridors.Filter
	var err error

	if filter.SuccessRateMin, err = queryFloat(queries, "success_rate_min"); err != nil {
		return corridors.Filter{}, err
	}
	if filter.SuccessRateMax, err = queryFloat(queries, "success_rate_max"); err != nil {
		return corridors.Filter{}, err
	}
	if filter.VolumeMin, err = queryFloat(queries, "volume_min"); err != nil {
		return corridors.Filter{}, err
	}
	if filter.VolumeMax, err = queryFloat(queries, "volume_max"); err != nil {
		return corridors.Filter{}, err
	}
	filter.AssetCode = queryString(queries, "asset_code")
	filter.TimePeriod = queryString(queries, "time_period")

	return filter, nil
}

func queryFloat(queries map[string]string, name string) (*float64, error) {
	raw, ok := queries[name]
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, BadRequest("invalid " + name + " parameter")
	}
	return &v, nil
}

func queryString(queries map[string]string, name string) *string {
	raw, ok := queries[name]
	if !ok {
		return nil
	}
	return &raw
}
