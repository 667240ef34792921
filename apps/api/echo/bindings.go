package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/prox/core"
)

var (
	orderingParam = "ordering"
	limitParam    = "limit"
)

// Ordering binds `?ordering=name,-status`: a leading "-" sorts descending.
type Ordering struct {
	Orderings []core.Ordering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.Ordering{Field: field, Ascending: !descending})
	}
}

// bindLimit returns the `?limit=` param, 0 when absent or invalid.
func bindLimit(ctx echo.Context) int {
	limit, err := strconv.Atoi(ctx.QueryParam(limitParam))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// bindJSON decodes the JSON request body into `v`, which may be any type (echo's binder wants structs).
func bindJSON(ctx echo.Context, v interface{}) error {
	if err := json.NewDecoder(ctx.Request().Body).Decode(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body").SetInternal(err)
	}
	return nil
}
