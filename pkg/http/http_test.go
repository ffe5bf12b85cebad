package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/pkg/http/middleware"
)

type sampleRequest struct {
	Values []float64 `json:"values" validate:"required,len=3"`
	Order  string    `json:"order" default:"oldest_first" validate:"oneof=oldest_first newest_first"`
}

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.POST("/echo", func(c echo.Context) error {
		var req sampleRequest
		if appErr := BindAndValidate(c, &req); appErr != nil {
			return ErrorResponse(c, appErr)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/boom", func(echo.Context) error { panic("boom") })
	e.GET("/fail", func(echo.Context) error { return UnavailableError("ledger down") })
}

func newTestServer(t *testing.T, rl *middleware.RateLimitConfig) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	s, err := NewServer(ServerConfig{Registerer: reg, Gatherer: reg, RateLimit: rl}, routes{})
	require.NoError(t, err)
	return s
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestBindAndValidateAppliesDefaults(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodPost, "/echo", `{"values":[1,2,3]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"values":[1,2,3],"order":"oldest_first"}`, rec.Body.String())
}

func TestBindAndValidateReportsJSONFieldNames(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodPost, "/echo", `{"values":[1,2]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "values must contain exactly 3 values", body.Error)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "values", body.Details[0].Field)
	assert.Equal(t, "ERR_LEN", body.Details[0].Code)
}

func TestBindAndValidateMalformedJSON(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodPost, "/echo", `{"values":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec).Error)
}

func TestErrorShapes(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, http.MethodGet, "/fail", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "ledger down", decodeError(t, rec).Error)

	rec = do(s, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec).Error)

	rec = do(s, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", decodeError(t, rec).Error)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	do(s, http.MethodPost, "/echo", `{"values":[1,2,3]}`)

	rec := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="POST",route="/echo",status="200"} 1`)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, &middleware.RateLimitConfig{RPS: 0.001, Burst: 2})

	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/echo", `{"values":[1,2,3]}`).Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/echo", `{"values":[1,2,3]}`).Code)
	rec := do(s, http.MethodPost, "/echo", `{"values":[1,2,3]}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestClientJSONRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		var in map[string]int
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]int{"n": in["n"] + 1})
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	var out map[string]int
	require.NoError(t, c.PostJSON(context.Background(), srv.URL, map[string]int{"n": 1}, &out))
	assert.Equal(t, 2, out["n"])

	err := c.GetJSON(context.Background(), srv.URL, url.Values{"fail": {"1"}}, &out)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "nope", se.Body)
}
