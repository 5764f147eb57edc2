//go:build integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/chamada/internal/cache"
	"github.com/saturnino-fabrica-de-software/chamada/internal/database"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/chamada/internal/repository"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
	"github.com/saturnino-fabrica-de-software/chamada/internal/testutil"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

const testDim = 128

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pg, err := testutil.StartPostgres(ctx, true)
	if err != nil {
		fmt.Printf("Failed to start postgres: %v\n", err)
		os.Exit(1)
	}

	testDB, err = database.NewPool(ctx, database.DefaultPoolConfig(pg.DSN))
	if err != nil {
		_ = pg.Terminate(ctx)
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	_ = pg.Terminate(ctx)
	os.Exit(code)
}

// newTestRouter wires the real stack over the container database with the
// deterministic mock provider.
func newTestRouter(t *testing.T) *Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := testDB.Exec(context.Background(), `TRUNCATE attendance_records, attendance_sessions, identities, cache_entries CASCADE`)
	require.NoError(t, err)

	identities := repository.NewIdentityRepository(testDB)
	attendance := repository.NewAttendanceRepository(testDB)
	galleryCache := gallery.NewCache(identities, gallery.Config{TTL: time.Minute, LoadTimeout: 5 * time.Second, Dimension: testDim}, logger)
	m, err := matcher.New(matcher.Euclidean{}, 0)
	require.NoError(t, err)

	p := mock.New(testDim)
	hub := ws.NewHub()

	recognition := service.NewRecognitionService(p, p, galleryCache, m, logger)
	router := NewRouter(logger, &Dependencies{
		Enrollment:  service.NewEnrollmentService(p, p, identities, galleryCache, logger, testDim),
		Recognition: recognition,
		Attendance: service.NewAttendanceService(recognition, attendance, logger).
			WithSummaryCache(cache.NewPGCache(testDB, "test"), time.Minute).
			WithBroadcaster(hub),
		Gallery: galleryCache,
		Hub:     hub,
		Decoder: imaging.NewDecoder(imaging.DefaultMaxSize),
		Checks:  []handler.Check{{Name: "database", Ping: testDB.Ping}},
	})
	router.Setup()
	t.Cleanup(func() { _ = router.Shutdown() })
	return router
}

// noisyPNG is large enough for the mock detector and unique per seed.
func noisyPNG(t *testing.T, seed int64) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func upload(t *testing.T, router *Router, path string, fields map[string]string, img []byte) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(img)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := router.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestIntegration_Ready(t *testing.T) {
	router := newTestRouter(t)

	resp, err := router.App().Test(httptest.NewRequest("GET", "/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var ready handler.ReadyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
	assert.Equal(t, "up", ready.Checks["database"])
}

func TestIntegration_RecognizeWithoutEnrollments(t *testing.T) {
	router := newTestRouter(t)

	resp := upload(t, router, "/v1/recognize", nil, noisyPNG(t, 1))
	assert.Equal(t, 400, resp.StatusCode)
}

func TestIntegration_EnrollRecognizeAttend(t *testing.T) {
	router := newTestRouter(t)
	ana := noisyPNG(t, 1)
	bruno := noisyPNG(t, 2)

	resp := upload(t, router, "/v1/identities", map[string]string{"id": "2024001", "display_name": "Ana"}, ana)
	require.Equal(t, 201, resp.StatusCode)
	resp = upload(t, router, "/v1/identities", map[string]string{"id": "2024002", "display_name": "Bruno"}, bruno)
	require.Equal(t, 201, resp.StatusCode)

	// the enrollment image matches its own identity exactly
	resp = upload(t, router, "/v1/recognize", nil, ana)
	require.Equal(t, 200, resp.StatusCode)
	var rec domain.Recognition
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	require.Len(t, rec.Results, 1)
	assert.Equal(t, "2024001", rec.Results[0].IdentityID)
	assert.InDelta(t, 1.0, rec.Results[0].Confidence, 1e-6)
	assert.Equal(t, 2, rec.GallerySize)

	// an unseen face is unknown
	resp = upload(t, router, "/v1/recognize", nil, noisyPNG(t, 3))
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, domain.UnknownIdentity, rec.Results[0].IdentityID)

	// taking attendance twice keeps one record
	for i := 0; i < 2; i++ {
		resp = upload(t, router, "/v1/sessions/calc-1/attendance", map[string]string{"name": "Calculus I"}, bruno)
		require.Equal(t, 200, resp.StatusCode)
	}

	resp, err := router.App().Test(httptest.NewRequest("GET", "/v1/sessions/calc-1", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var summary domain.SessionSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 1, summary.Present)
	assert.Equal(t, "Calculus I", summary.Session.Name)
	assert.Equal(t, "2024002", summary.Records[0].IdentityID)

	resp, err = router.App().Test(httptest.NewRequest("GET", "/v1/identities/2024002/attendance", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	// deleting drops the identity from the next recognition
	resp, err = router.App().Test(httptest.NewRequest("DELETE", "/v1/identities/2024001", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 204, resp.StatusCode)

	resp = upload(t, router, "/v1/recognize", nil, ana)
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, domain.UnknownIdentity, rec.Results[0].IdentityID)
	assert.Equal(t, 1, rec.GallerySize)
}

func TestIntegration_NotFound(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/v1/identities/nobody", "/v1/sessions/none", "/nonexistent"} {
		resp, err := router.App().Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode, path)
	}
}
