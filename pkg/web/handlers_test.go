package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fimbul-io/sporing/pkg/person"
	"github.com/fimbul-io/sporing/pkg/transition"
	"github.com/fimbul-io/sporing/pkg/web"
)

type stubDirectory struct {
	person *person.Person
	err    error
}

func (d *stubDirectory) Vedtaksperioder(context.Context, string) (*person.Person, error) {
	if d.err != nil {
		return nil, d.err
	}

	return d.person, nil
}

func setupTestApp(t *testing.T, repo transition.Repository, directory web.Directory) *fiber.App {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handlers := web.NewHandlers(repo, directory, logger)

	app := fiber.New()
	app.Get("/", handlers.GetIndex)
	app.Get("/tilstandsmaskin.json", handlers.GetTransitionsJSON)
	app.Get("/tilstandsmaskin.dot", handlers.GetTransitionsDOT)
	app.Get("/tilstandsmaskin/:vedtaksperiodeId.json", handlers.GetHistoryJSON)
	app.Get("/tilstandsmaskin/:vedtaksperiodeId.dot", handlers.GetHistoryDOT)
	app.Get("/tilstandsmaskin/:vedtaksperiodeId", handlers.GetHistoryPage)
	app.Get("/person/:pid.html", handlers.GetPersonHTML)
	app.Get("/person/:pid", handlers.GetPersonJSON)

	return app
}

func seededRepository(t *testing.T, vedtaksperiodeID uuid.UUID) *transition.MemoryRepository {
	t.Helper()

	repo := transition.NewMemoryRepository()
	base := time.Date(2023, 4, 12, 10, 0, 0, 0, time.UTC)

	records := []transition.Record{
		{
			MessageID: uuid.New(), VedtaksperiodeID: vedtaksperiodeID,
			FromState: "START", ToState: "AVVENTER_GAP", Reason: "sendt_søknad_nav", OccurredAt: base,
			Cause: transition.Cause{ID: uuid.New(), Name: "sendt_søknad_nav", CreatedAt: base},
		},
		{
			MessageID: uuid.New(), VedtaksperiodeID: vedtaksperiodeID,
			FromState: "AVVENTER_GAP", ToState: "AVVENTER_HISTORIKK", Reason: "Sykepengehistorikk", OccurredAt: base.Add(time.Hour),
			Cause: transition.Cause{ID: uuid.New(), Name: "Sykepengehistorikk", CreatedAt: base.Add(time.Hour)},
		},
	}

	for _, rec := range records {
		require.NoError(t, repo.Record(context.Background(), rec))
	}

	return repo
}

func TestGetTransitionsJSON(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, seededRepository(t, uuid.New()), &stubDirectory{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tilstandsmaskin.json", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed web.TransitionsResponse
	require.NoError(t, json.Unmarshal(body, &parsed))

	require.Len(t, parsed.Transitions, 2)
	assert.Equal(t, "START", parsed.Transitions[0].FromState)
	assert.Equal(t, int64(1), parsed.Transitions[0].Count)

	// wire names are Norwegian
	assert.Contains(t, string(body), `"fraTilstand"`)
	assert.Contains(t, string(body), `"førstegang"`)
	assert.Contains(t, string(body), `"antall"`)
}

func TestGetTransitionsJSONAppliesFilters(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, seededRepository(t, uuid.New()), &stubDirectory{})

	tests := []struct {
		name     string
		url      string
		expected int
	}{
		{name: "filter by reason", url: "/tilstandsmaskin.json?fordi=Sykepengehistorikk", expected: 1},
		{name: "repeated reasons are disjunctive", url: "/tilstandsmaskin.json?fordi=Sykepengehistorikk&fordi=sendt_søknad_nav", expected: 2},
		{name: "exclude state", url: "/tilstandsmaskin.json?ignorerTilstand=AVVENTER_HISTORIKK", expected: 1},
		{name: "exclude reason", url: "/tilstandsmaskin.json?ignorerFordi=sendt_søknad_nav", expected: 1},
		{name: "since bound", url: "/tilstandsmaskin.json?etter=2023-04-12T10:30:00", expected: 1},
		{name: "unknown reason matches nothing", url: "/tilstandsmaskin.json?fordi=finnes_ikke", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.url, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var parsed web.TransitionsResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
			assert.Len(t, parsed.Transitions, tt.expected)
		})
	}
}

func TestGetTransitionsRejectsMalformedTimestamp(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, transition.NewMemoryRepository(), &stubDirectory{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tilstandsmaskin.json?etter=igår", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Please use a valid timestamp", string(body))
}

func TestGetTransitionsDOT(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, seededRepository(t, uuid.New()), &stubDirectory{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tilstandsmaskin.dot", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "digraph {")
	assert.Contains(t, string(body), "START -> AVVENTER_GAP")
}

func TestGetHistoryJSON(t *testing.T) {
	t.Parallel()

	vedtaksperiodeID := uuid.New()
	app := setupTestApp(t, seededRepository(t, vedtaksperiodeID), &stubDirectory{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tilstandsmaskin/"+vedtaksperiodeID.String()+".json", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed web.TransitionsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))

	require.Len(t, parsed.Transitions, 2)
	assert.Equal(t, "START", parsed.Transitions[0].FromState)
	assert.Equal(t, "AVVENTER_HISTORIKK", parsed.Transitions[1].ToState)
}

func TestGetHistoryRejectsMalformedUUID(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, transition.NewMemoryRepository(), &stubDirectory{})

	for _, url := range []string{"/tilstandsmaskin/ikke-en-uuid.json", "/tilstandsmaskin/ikke-en-uuid.dot", "/tilstandsmaskin/ikke-en-uuid"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "url %s", url)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "Please use a valid UUID", string(body))
	}
}

func TestGetHistoryDOTUsesSpecificFormatter(t *testing.T) {
	t.Parallel()

	vedtaksperiodeID := uuid.New()
	app := setupTestApp(t, seededRepository(t, vedtaksperiodeID), &stubDirectory{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tilstandsmaskin/"+vedtaksperiodeID.String()+".dot", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// occurrence labels carry ordinals
	assert.Contains(t, string(body), "#1 ")
	assert.Contains(t, string(body), "#2 ")
}

func TestGetHistoryPageEmbedsID(t *testing.T) {
	t.Parallel()

	vedtaksperiodeID := uuid.New()
	app := setupTestApp(t, transition.NewMemoryRepository(), &stubDirectory{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tilstandsmaskin/"+vedtaksperiodeID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/tilstandsmaskin/"+vedtaksperiodeID.String()+".dot")
}

func TestGetIndexReflectsSanitizedQuery(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, transition.NewMemoryRepository(), &stubDirectory{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/?fordi=påminnelse&ignorerTilstand=AVSLUTTET%3Cscript%3E", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "fordi=påminnelse")
	assert.Contains(t, string(body), "ignorerTilstand=AVSLUTTETscript")
	assert.NotContains(t, string(body), "<script>")
}

func TestGetPersonJSON(t *testing.T) {
	t.Parallel()

	vedtaksperiodeID := uuid.New()
	repo := seededRepository(t, vedtaksperiodeID)

	directory := &stubDirectory{person: &person.Person{
		Fødselsnummer: "12345678910",
		Arbeidsgivere: []person.Arbeidsgiver{{
			Organisasjonsnummer: "987654321",
			Vedtaksperioder: []person.Vedtaksperiode{{
				ID: vedtaksperiodeID, Fom: "2023-01-01", Tom: "2023-01-31", Periodetype: person.PeriodetypeGap,
			}},
		}},
	}}

	app := setupTestApp(t, repo, directory)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/person/12345678910", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed web.PersonResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))

	require.Len(t, parsed.Transitions, 2)
	assert.Equal(t, vedtaksperiodeID, parsed.Transitions[0].VedtaksperiodeID)
	require.Len(t, parsed.Timeline, 2)
	assert.Equal(t, "sendt_søknad_nav", parsed.Timeline[0].Navn)
}

func TestGetPersonHTML(t *testing.T) {
	t.Parallel()

	vedtaksperiodeID := uuid.New()
	repo := seededRepository(t, vedtaksperiodeID)

	directory := &stubDirectory{person: &person.Person{
		Fødselsnummer: "12345678910",
		Arbeidsgivere: []person.Arbeidsgiver{{
			Organisasjonsnummer: "987654321",
			Vedtaksperioder: []person.Vedtaksperiode{{
				ID: vedtaksperiodeID, Fom: "2023-01-01", Tom: "2023-01-31", Periodetype: person.PeriodetypeGap,
			}},
		}},
	}}

	app := setupTestApp(t, repo, directory)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/person/12345678910.html", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tabell tidslinje")
}

func TestGetPersonRejectsNonNumericPID(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, transition.NewMemoryRepository(), &stubDirectory{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/person/abcdef", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Please set pid in url (numbers only)", string(body))
}

func TestGetPersonSurfacesDirectoryFailure(t *testing.T) {
	t.Parallel()

	directory := &stubDirectory{err: &person.DirectoryError{StatusCode: http.StatusServiceUnavailable, Body: "down"}}
	app := setupTestApp(t, transition.NewMemoryRepository(), directory)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/person/12345678910", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, "directory_unavailable", problem["type"])
}

func TestGetPersonInternalFailure(t *testing.T) {
	t.Parallel()

	directory := &stubDirectory{err: errors.New("boom")}
	app := setupTestApp(t, transition.NewMemoryRepository(), directory)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/person/12345678910", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
