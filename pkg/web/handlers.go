// Package web provides the read-only HTTP surface: aggregated and
// per-vedtaksperiode transition views as JSON and Graphviz DOT, plus the
// person timeline reconstructed across vedtaksperioder.
package web

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/fimbul-io/sporing/pkg/graphviz"
	"github.com/fimbul-io/sporing/pkg/person"
	"github.com/fimbul-io/sporing/pkg/transition"
)

// Directory resolves which vedtaksperioder belong to a person.
type Directory interface {
	Vedtaksperioder(ctx context.Context, fnr string) (*person.Person, error)
}

type Handlers struct {
	repository transition.Repository
	directory  Directory
	logger     *slog.Logger
}

func NewHandlers(repository transition.Repository, directory Directory, logger *slog.Logger) *Handlers {
	return &Handlers{
		repository: repository,
		directory:  directory,
		logger:     logger,
	}
}

// TransitionsResponse wraps the aggregated edge list.
type TransitionsResponse struct {
	Transitions []transition.Transition `json:"tilstandsendringer"`
}

// PersonResponse carries both the raw link rows and the reconstructed
// timeline for a person.
type PersonResponse struct {
	Transitions []transition.PersonTransition `json:"tilstandsendringer"`
	Timeline    []person.TimelineEntry        `json:"tidslinje"`
}

func (h *Handlers) GetTransitionsJSON(c fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	transitions, err := h.repository.Transitions(c.Context(), *filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(TransitionsResponse{Transitions: transitions})
}

func (h *Handlers) GetTransitionsDOT(c fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	transitions, err := h.repository.Transitions(c.Context(), *filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.Type("txt", "utf-8").SendString(graphviz.General.Format(transitions))
}

func (h *Handlers) GetHistoryJSON(c fiber.Ctx) error {
	id, err := parseVedtaksperiodeID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	history, err := h.repository.History(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(TransitionsResponse{Transitions: history})
}

func (h *Handlers) GetHistoryDOT(c fiber.Ctx) error {
	id, err := parseVedtaksperiodeID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	history, err := h.repository.History(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.Type("txt", "utf-8").SendString(graphviz.Specific.Format(history))
}

func (h *Handlers) GetPersonJSON(c fiber.Ctx) error {
	response, err := h.personResponse(c)
	if err != nil {
		return h.personError(c, err)
	}

	return c.JSON(response)
}

func (h *Handlers) GetPersonHTML(c fiber.Ctx) error {
	fnr, ok := numericalOnly(c.Params("pid"))
	if !ok {
		return badRequest(c, "Please set pid in url (numbers only)")
	}

	p, err := h.directory.Vedtaksperioder(c.Context(), fnr)
	if err != nil {
		return h.personError(c, err)
	}

	rows, err := h.repository.HistoryForVedtaksperioder(c.Context(), p.VedtaksperiodeIDs())
	if err != nil {
		return internalError(c, err)
	}

	page := person.RenderTimelineHTML(p, person.BuildTimeline(rows))

	return c.Type("html", "utf-8").SendString(page)
}

func (h *Handlers) personResponse(c fiber.Ctx) (*PersonResponse, error) {
	fnr, ok := numericalOnly(c.Params("pid"))
	if !ok {
		return nil, errBadPID
	}

	p, err := h.directory.Vedtaksperioder(c.Context(), fnr)
	if err != nil {
		return nil, err
	}

	rows, err := h.repository.HistoryForVedtaksperioder(c.Context(), p.VedtaksperiodeIDs())
	if err != nil {
		return nil, err
	}

	return &PersonResponse{
		Transitions: rows,
		Timeline:    person.BuildTimeline(rows),
	}, nil
}

// etterLayouts accepts local datetimes with or without fractional seconds,
// matching the timestamps the stream writes.
var etterLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

var alphaNumerical = regexp.MustCompile(`[^A-Za-z0-9æøåÆØÅ_-]`)

var numerical = regexp.MustCompile(`[^0-9]`)

// parseFilter reads the repeatable fordi, ignorerTilstand and ignorerFordi
// query params plus the optional etter timestamp. Values are stripped down
// to a safe alphabet rather than rejected.
func parseFilter(c fiber.Ctx) (*transition.Filter, error) {
	filter := &transition.Filter{
		Reasons:        queryValues(c, "fordi"),
		ExcludeStates:  queryValues(c, "ignorerTilstand"),
		ExcludeReasons: queryValues(c, "ignorerFordi"),
	}

	if etter := c.Query("etter"); etter != "" {
		since, err := parseEtter(etter)
		if err != nil {
			return nil, errBadEtter
		}

		filter.Since = &since
	}

	return filter, nil
}

func parseEtter(value string) (time.Time, error) {
	var err error

	for _, layout := range etterLayouts {
		var ts time.Time

		ts, err = time.Parse(layout, value)
		if err == nil {
			return ts, nil
		}
	}

	return time.Time{}, err
}

func queryValues(c fiber.Ctx, name string) []string {
	raw := c.RequestCtx().QueryArgs().PeekMulti(name)

	values := make([]string, 0, len(raw))

	for _, v := range raw {
		cleaned := alphaNumerical.ReplaceAllString(string(v), "")
		if cleaned != "" {
			values = append(values, cleaned)
		}
	}

	return values
}

func parseVedtaksperiodeID(c fiber.Ctx) (uuid.UUID, error) {
	raw := c.Params("vedtaksperiodeId")
	if raw == "" {
		return uuid.Nil, errMissingID
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errBadID
	}

	return id, nil
}

func numericalOnly(value string) (string, bool) {
	cleaned := numerical.ReplaceAllString(value, "")

	return cleaned, cleaned != ""
}
