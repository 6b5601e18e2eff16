package web

import (
	"embed"
	"strings"

	"github.com/gofiber/fiber/v3"
)

//go:embed public
var assets embed.FS

func assetPage(name string) string {
	page, err := assets.ReadFile("public/" + name)
	if err != nil {
		panic(err)
	}

	return string(page)
}

// GetIndex serves the interactive state machine viewer. The filter params
// are re-encoded from their sanitized form so the page fetches the same
// view the caller asked for.
func (h *Handlers) GetIndex(c fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	pairs := make([]string, 0)

	for _, reason := range filter.Reasons {
		pairs = append(pairs, "fordi="+reason)
	}

	for _, state := range filter.ExcludeStates {
		pairs = append(pairs, "ignorerTilstand="+state)
	}

	for _, reason := range filter.ExcludeReasons {
		pairs = append(pairs, "ignorerFordi="+reason)
	}

	if filter.Since != nil {
		pairs = append(pairs, "etter="+filter.Since.Format("2006-01-02T15:04:05"))
	}

	query := ""
	if len(pairs) > 0 {
		query = "?" + strings.Join(pairs, "&")
	}

	page := strings.ReplaceAll(assetPage("index.html"), "{query}", query)

	return c.Type("html", "utf-8").SendString(page)
}

// GetHistoryPage serves the viewer for a single vedtaksperiode.
func (h *Handlers) GetHistoryPage(c fiber.Ctx) error {
	id, err := parseVedtaksperiodeID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	page := strings.ReplaceAll(assetPage("vedtaksperiode.html"), "{vedtaksperiodeId}", id.String())

	return c.Type("html", "utf-8").SendString(page)
}
