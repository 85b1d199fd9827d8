package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pvsizer/pvsizer/pkg/analysis"
	"github.com/pvsizer/pvsizer/pkg/live"
	"github.com/pvsizer/pvsizer/pkg/preset"
	"github.com/pvsizer/pvsizer/pkg/price"
	"github.com/pvsizer/pvsizer/pkg/storage"
	"github.com/pvsizer/pvsizer/pkg/storage/storagemock"
	"github.com/pvsizer/pvsizer/pkg/types"
)

func newTestServer(t *testing.T, db storage.Database) *Server {
	t.Helper()
	prices := price.NewMap()
	static, err := price.NewStatic(0.8, "RON")
	require.NoError(t, err)
	prices.Register(price.ProviderStatic, static)
	return New(preset.NewRegistry(), prices, db)
}

// flatDayCSV is one day of 0.5 kWh every hour.
func flatDayCSV() string {
	var b strings.Builder
	b.WriteString("energie (kwh),ora,zi,luna,an\n")
	for h := 0; h < 24; h++ {
		fmt.Fprintf(&b, "0.5,%d,1,6,2024\n", h)
	}
	return b.String()
}

func uploadRequest(t *testing.T, path, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(method, path, bytes.NewReader(b))
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.setupHandler().ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var res struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.Error
}

func TestWebHandler(t *testing.T) {
	testFS := fstest.MapFS{
		"index.html":     {Data: []byte("<html>index</html>")},
		"assets/main.js": {Data: []byte("console.log('hello');")},
	}
	srv := newTestServer(t, storage.NewMemory())
	mux := http.NewServeMux()
	mux.Handle("/", srv.webHandler(testFS, http.FileServer(http.FS(testFS))))

	t.Run("Serve Existing File", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/assets/main.js", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "console.log('hello');", w.Body.String())
	})

	t.Run("Fallback To Index", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/reports/abc", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "<html>index</html>", w.Body.String())
	})

	t.Run("Well Known Not Found", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/.well-known/security.txt", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Cache Duration", func(t *testing.T) {
		srv.webCacheDuration = time.Hour
		defer func() { srv.webCacheDuration = 0 }()
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
	})
}

func TestHandler(t *testing.T) {
	srv := newTestServer(t, storage.NewMemory())

	t.Run("Healthz", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "pvsizer", w.Header().Get("Server"))
	})

	t.Run("Metrics", func(t *testing.T) {
		serve(srv, httptest.NewRequest("GET", "/api/presets", nil))
		w := serve(srv, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `pvsizer_requests_total{code="2xx",path="GET /api/presets"}`)
	})

	t.Run("Gzip", func(t *testing.T) {
		req := uploadRequest(t, "/api/analyze", "consum.csv", flatDayCSV(), nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := serve(srv, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	})
}

func TestAnalyze(t *testing.T) {
	srv := newTestServer(t, storage.NewMemory())

	t.Run("Defaults", func(t *testing.T) {
		w := serve(srv, uploadRequest(t, "/api/analyze", "consum.csv", flatDayCSV(), nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var res analyzeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 24, res.Stats.ReadingCount)
		assert.InDelta(t, 12.0, res.Stats.AvgDailyKWH, 1e-9)
		assert.Zero(t, res.Dropped)
		assert.InDelta(t, 12.0/4.5/0.85, res.Sizing.PVArraySizeKW, 1e-9)
		assert.Equal(t, 0.8, res.Sizing.ElectricityCostPerKWH)
		assert.False(t, res.Sizing.Payback.Unbounded)
		assert.True(t, res.Validation.IsValid)
	})

	t.Run("Form Configuration", func(t *testing.T) {
		w := serve(srv, uploadRequest(t, "/api/analyze", "consum.csv", flatDayCSV(), map[string]string{
			"presets":   "premium",
			"overrides": `{"solar":{"peakSunHours":6}}`,
			"price":     "0",
		}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var res analyzeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.InDelta(t, 12.0/6/0.90, res.Sizing.PVArraySizeKW, 1e-9)
		assert.True(t, res.Sizing.Payback.Unbounded)
		assert.Contains(t, w.Body.String(), `"paybackYears":"unbounded"`)
	})

	t.Run("Dropped Rows", func(t *testing.T) {
		in := flatDayCSV() + "abc,1,1,6,2024\n"
		w := serve(srv, uploadRequest(t, "/api/analyze", "consum.csv", in, nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res analyzeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 1, res.Dropped)
	})

	t.Run("Missing File", func(t *testing.T) {
		w := serve(srv, uploadRequest(t, "/api/analyze", "", "", map[string]string{"presets": "budget"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing file", errorMessage(t, w))
	})

	t.Run("No Valid Data", func(t *testing.T) {
		w := serve(srv, uploadRequest(t, "/api/analyze", "consum.csv", "energie,ora,zi,luna\n", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "insufficient data", errorMessage(t, w))
	})

	t.Run("Missing Columns", func(t *testing.T) {
		w := serve(srv, uploadRequest(t, "/api/analyze", "consum.csv", "foo,bar\n1,2\n", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "insufficient data", errorMessage(t, w))
	})

	t.Run("Unsupported Format", func(t *testing.T) {
		w := serve(srv, uploadRequest(t, "/api/analyze", "consum.pdf", "%PDF", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unknown Preset", func(t *testing.T) {
		w := serve(srv, uploadRequest(t, "/api/analyze", "consum.csv", flatDayCSV(), map[string]string{"presets": "nope"}))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.True(t, strings.HasPrefix(errorMessage(t, w), "invalid configuration"))
	})

	t.Run("Invalid Overrides", func(t *testing.T) {
		w := serve(srv, uploadRequest(t, "/api/analyze", "consum.csv", flatDayCSV(), map[string]string{"overrides": "{"}))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Zero Peak Sun Hours", func(t *testing.T) {
		w := serve(srv, uploadRequest(t, "/api/analyze", "consum.csv", flatDayCSV(), map[string]string{
			"overrides": `{"solar":{"peakSunHours":0}}`,
		}))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, errorMessage(t, w), "peakSunHours")
	})

	t.Run("Invalid Price", func(t *testing.T) {
		w := serve(srv, uploadRequest(t, "/api/analyze", "consum.csv", flatDayCSV(), map[string]string{"price": "cheap"}))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestSize(t *testing.T) {
	srv := newTestServer(t, storage.NewMemory())
	readings := make([]types.Reading, 24)
	for h := range readings {
		readings[h] = types.Reading{EnergyKWH: 0.5, Hour: h, Day: 1, Month: 6, Year: 2024}
	}
	stats, err := analysis.Aggregate(readings)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		w := serve(srv, jsonRequest(t, "POST", "/api/size", sizeRequest{
			Stats:   stats,
			Presets: []string{"budget"},
			Price:   types.Float(1),
		}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res types.SizingResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 1.0, res.ElectricityCostPerKWH)
		assert.Len(t, res.Variants, 3)
	})

	t.Run("No Stats", func(t *testing.T) {
		w := serve(srv, jsonRequest(t, "POST", "/api/size", sizeRequest{}))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "insufficient data", errorMessage(t, w))
	})

	t.Run("Invalid Stats", func(t *testing.T) {
		tests := []struct {
			name  string
			mod   func(*types.ConsumptionStats)
			error string
		}{
			{"zero readings", func(s *types.ConsumptionStats) { s.ReadingCount = 0 }, "insufficient data"},
			{"negative daily", func(s *types.ConsumptionStats) { s.AvgDailyKWH = -10 }, "invalid statistics"},
			{"negative peak", func(s *types.ConsumptionStats) { s.MaxHourlyKWH = -2 }, "invalid statistics"},
			{"huge daily", func(s *types.ConsumptionStats) { s.AvgDailyKWH = 1e300 }, "invalid statistics"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				bad := stats
				tt.mod(&bad)
				w := serve(srv, jsonRequest(t, "POST", "/api/size", sizeRequest{Stats: bad}))
				assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
				assert.True(t, strings.HasPrefix(errorMessage(t, w), tt.error), errorMessage(t, w))
			})
		}
	})

	t.Run("Negative Price", func(t *testing.T) {
		w := serve(srv, jsonRequest(t, "POST", "/api/size", sizeRequest{Stats: stats, Price: types.Float(-1)}))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Bad JSON", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest("POST", "/api/size", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestValidate(t *testing.T) {
	srv := newTestServer(t, storage.NewMemory())

	t.Run("Defaults", func(t *testing.T) {
		w := serve(srv, jsonRequest(t, "POST", "/api/validate", validateRequest{}))
		require.Equal(t, http.StatusOK, w.Code)
		var res types.Validation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.True(t, res.IsValid)
		assert.Empty(t, res.Warnings)
	})

	t.Run("Out Of Range", func(t *testing.T) {
		w := serve(srv, jsonRequest(t, "POST", "/api/validate", validateRequest{
			Overrides: types.ConfigurationOverrides{Solar: &types.SolarOverrides{PanelWattage: types.Float(200)}},
		}))
		require.Equal(t, http.StatusOK, w.Code)
		var res types.Validation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.False(t, res.IsValid)
		assert.Equal(t, []string{"Panel wattage outside typical range (250-600W)"}, res.Warnings)
	})

	t.Run("Unknown Preset", func(t *testing.T) {
		w := serve(srv, jsonRequest(t, "POST", "/api/validate", validateRequest{Presets: []string{"nope"}}))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestPresetsAndPrice(t *testing.T) {
	srv := newTestServer(t, storage.NewMemory())

	t.Run("Presets", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest("GET", "/api/presets", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var res []presetSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Len(t, res, 10)
		assert.Equal(t, "budget", res[0].Name)
		assert.NotEmpty(t, res[0].Description)
	})

	t.Run("Price", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest("GET", "/api/price", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var res types.Price
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, price.ProviderStatic, res.Provider)
		assert.Equal(t, 0.8, res.PerKWH)
		assert.Equal(t, "RON", res.Currency)
	})

	t.Run("No Provider", func(t *testing.T) {
		empty := New(preset.NewRegistry(), price.NewMap(), storage.NewMemory())
		w := serve(empty, httptest.NewRequest("GET", "/api/price", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestConfiguration(t *testing.T) {
	t.Run("Get Migrates", func(t *testing.T) {
		db := new(storagemock.MockDatabase)
		srv := newTestServer(t, db)
		legacy := types.SavedConfiguration{Presets: []string{"budgetConfig", "Mountain"}}
		db.On("GetConfiguration", mock.Anything, types.UserIDLocal).Return(legacy, 1, nil)
		db.On("SetConfiguration", mock.Anything, types.UserIDLocal, types.SavedConfiguration{
			Presets: []string{"budget", "mountain"},
		}, types.CurrentConfigurationVersion).Return(nil)

		w := serve(srv, httptest.NewRequest("GET", "/api/configuration", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var res types.SavedConfiguration
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, []string{"budget", "mountain"}, res.Presets)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		db.AssertExpectations(t)
	})

	t.Run("Get Current Version", func(t *testing.T) {
		db := new(storagemock.MockDatabase)
		srv := newTestServer(t, db)
		db.On("GetConfiguration", mock.Anything, types.UserIDLocal).Return(types.SavedConfiguration{Label: "house"}, types.CurrentConfigurationVersion, nil)

		w := serve(srv, httptest.NewRequest("GET", "/api/configuration", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"label":"house"`)
		db.AssertNotCalled(t, "SetConfiguration", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Get Error", func(t *testing.T) {
		db := new(storagemock.MockDatabase)
		srv := newTestServer(t, db)
		db.On("GetConfiguration", mock.Anything, types.UserIDLocal).Return(types.SavedConfiguration{}, 0, assert.AnError)

		w := serve(srv, httptest.NewRequest("GET", "/api/configuration", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("Update", func(t *testing.T) {
		db := new(storagemock.MockDatabase)
		srv := newTestServer(t, db)
		want := types.SavedConfiguration{
			Presets:                []string{"premium"},
			ElectricityPricePerKWH: types.Float(1.1),
		}
		db.On("SetConfiguration", mock.Anything, types.UserIDLocal, want, types.CurrentConfigurationVersion).Return(nil)

		w := serve(srv, jsonRequest(t, "POST", "/api/configuration", types.SavedConfiguration{
			Presets:                []string{" Premium "},
			ElectricityPricePerKWH: types.Float(1.1),
		}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		db.AssertExpectations(t)
	})

	t.Run("Update Legacy Names", func(t *testing.T) {
		db := new(storagemock.MockDatabase)
		srv := newTestServer(t, db)
		want := types.SavedConfiguration{Presets: []string{"budget", "ev-ready"}}
		db.On("SetConfiguration", mock.Anything, types.UserIDLocal, want, types.CurrentConfigurationVersion).Return(nil)

		w := serve(srv, jsonRequest(t, "POST", "/api/configuration", types.SavedConfiguration{
			Presets: []string{"budgetConfig", "evReadyConfig"},
		}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		db.AssertExpectations(t)
	})

	t.Run("Update Invalid", func(t *testing.T) {
		db := new(storagemock.MockDatabase)
		srv := newTestServer(t, db)

		w := serve(srv, jsonRequest(t, "POST", "/api/configuration", types.SavedConfiguration{Presets: []string{"nope"}}))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		w = serve(srv, jsonRequest(t, "POST", "/api/configuration", types.SavedConfiguration{ElectricityPricePerKWH: types.Float(-2)}))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		db.AssertNotCalled(t, "SetConfiguration", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Saved Configuration Used For Uploads", func(t *testing.T) {
		db := storage.NewMemory()
		srv := newTestServer(t, db)
		require.NoError(t, db.SetConfiguration(context.Background(), types.UserIDLocal, types.SavedConfiguration{
			ElectricityPricePerKWH: types.Float(2),
		}, types.CurrentConfigurationVersion))

		w := serve(srv, uploadRequest(t, "/api/analyze", "consum.csv", flatDayCSV(), nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res analyzeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 2.0, res.Sizing.ElectricityCostPerKWH)

		// form fields win over the saved configuration
		w = serve(srv, uploadRequest(t, "/api/analyze", "consum.csv", flatDayCSV(), map[string]string{"price": "0.5"}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 0.5, res.Sizing.ElectricityCostPerKWH)
	})
}

func TestReports(t *testing.T) {
	srv := newTestServer(t, storage.NewMemory())

	w := serve(srv, uploadRequest(t, "/api/reports", "consum.csv", flatDayCSV(), map[string]string{"presets": "budget"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created types.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, types.UserIDLocal, created.UserID)
	assert.Equal(t, "consum.csv", created.FileName)
	assert.Equal(t, []string{"budget"}, created.Configuration.Presets)

	t.Run("List", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest("GET", "/api/reports", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var res []reportSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Len(t, res, 1)
		assert.Equal(t, created.ID, res[0].ID)
		assert.Equal(t, created.Sizing.PVArraySizeKW, res[0].PVArraySizeKW)
	})

	t.Run("Invalid Limit", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest("GET", "/api/reports?limit=0", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Get", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest("GET", "/api/reports/"+created.ID, nil))
		require.Equal(t, http.StatusOK, w.Code)
		var res types.Report
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, created.ID, res.ID)
		assert.Equal(t, created.Stats.ReadingCount, res.Stats.ReadingCount)
	})

	t.Run("Not Found", func(t *testing.T) {
		w := serve(srv, httptest.NewRequest("GET", "/api/reports/missing", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Insufficient Data Not Saved", func(t *testing.T) {
		w := serve(srv, uploadRequest(t, "/api/reports", "consum.csv", "energie,ora,zi,luna\n", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		w = serve(srv, httptest.NewRequest("GET", "/api/reports", nil))
		var res []reportSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Len(t, res, 1)
	})
}

func TestLive(t *testing.T) {
	db := storage.NewMemory()
	require.NoError(t, db.SetConfiguration(context.Background(), types.UserIDLocal, types.SavedConfiguration{
		ElectricityPricePerKWH: types.Float(0),
	}, types.CurrentConfigurationVersion))
	srv := newTestServer(t, db)

	ts := httptest.NewServer(srv.setupHandler())
	defer ts.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/live", nil)
	require.NoError(t, err)
	defer conn.Close()

	readings := make([]types.Reading, 24)
	for h := range readings {
		readings[h] = types.Reading{EnergyKWH: 0.5, Hour: h, Day: 1, Month: 6, Year: 2024}
	}
	msg, err := live.NewEnvelope(live.TypeReadings, live.ReadingsPayload{FileName: "consum.csv", Readings: readings})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env live.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Equal(t, live.TypeResult, env.Type, string(env.Payload))

	var res live.ResultPayload
	require.NoError(t, json.Unmarshal(env.Payload, &res))
	// the saved configuration pins a zero price
	assert.True(t, res.Sizing.Payback.Unbounded)
	assert.Equal(t, 24, res.Stats.ReadingCount)

	t.Run("Upload Limit", func(t *testing.T) {
		small := newTestServer(t, storage.NewMemory())
		small.maxUploadBytes = 256
		ts := httptest.NewServer(small.setupHandler())
		defer ts.Close()
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/live", nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err = conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.CloseMessageTooBig), err)
	})
}
