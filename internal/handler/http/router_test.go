package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/roster"
	domainSettings "github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/user"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/lock"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/qrtoken"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/school-attendance-go/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/school-attendance-go/internal/service/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/service/geofence"
	reportService "github.com/cmlabs-hris/school-attendance-go/internal/service/report"
	settingsService "github.com/cmlabs-hris/school-attendance-go/internal/service/settings"
	sweepService "github.com/cmlabs-hris/school-attendance-go/internal/service/sweep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

var schoolLocation = map[string]float64{"latitude": -6.2000, "longitude": 106.8166}

type testServer struct {
	handler http.Handler
	jwt     jwt.Service
	tokens  *qrtoken.Service
	hub     *sse.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := memory.Open()
	ctx := context.Background()
	require.NoError(t, db.Settings().SaveGeofenceReference(ctx, domainSettings.GeofenceReference{
		Latitude:     -6.2000,
		Longitude:    106.8166,
		RadiusMeters: 150,
	}))
	db.Roster().Put(
		roster.Subject{ID: "S1", Type: attendance.SubjectStudent, Active: true},
		roster.Subject{ID: "S2", Type: attendance.SubjectStudent, Active: true},
	)

	m := metrics.New()
	hub := sse.NewHub()
	tokens := qrtoken.NewService()
	settingsSvc := settingsService.NewSettingsService(db.Settings(), domainSettings.AttendanceSettings{
		LateAfter:  "08:00",
		CloseAfter: "15:00",
		Timezone:   "UTC",
	})
	ledger := attendanceService.NewLedger(db.Attendance())
	recorder := attendanceService.NewRecorder(
		ledger,
		db.Attendance(),
		tokens,
		geofence.NewValidator(settingsSvc),
		settingsSvc,
		db.Roster(),
		nil,
		m,
		attendanceService.Options{Timeout: 5 * time.Second},
	)
	sweeper := sweepService.NewSweeper(ledger, db.Attendance(), db.Roster(), db.SweepLocks(), lock.NewMemoryLocker(), settingsSvc, m, time.Minute)

	jwtService := jwt.NewJWTService(handlerTestSecret, "1h")
	router := NewRouter(
		jwtService,
		RouterOptions{AllowedOrigins: []string{"http://localhost:3000"}, Metrics: m.Handler()},
		NewAttendanceHandler(recorder, hub),
		NewReportHandler(reportService.NewReportService(db.Reports(), db.Roster())),
		NewSweepHandler(sweeper),
		NewTokenHandler(tokens),
		NewSettingsHandler(settingsSvc),
	)

	return &testServer{handler: router, jwt: jwtService, tokens: tokens, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, userID string, role user.Role, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, _, err := s.jwt.GenerateAccessToken(userID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) qrPayload(t *testing.T, subjectID, role string) string {
	t.Helper()
	payload, err := qrtoken.Encode(s.tokens.Issue(subjectID, role, nil))
	require.NoError(t, err)
	return payload
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Kind    string            `json:"kind"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Page       int   `json:"page"`
		TotalItems int64 `json:"total_items"`
	} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", "", "", map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_StudentQRCheckInAndOut(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{
		"method":   "qrToken",
		"token":    s.qrPayload(t, "S1", "student"),
		"location": schoolLocation,
	}

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", "S1", user.RoleStudent, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created attendance.AttendanceResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))
	assert.Equal(t, "S1", created.SubjectID)
	assert.Equal(t, "student", created.SubjectType)
	assert.Equal(t, "checked_in", created.State)
	assert.True(t, created.Verified)

	rec = s.do(t, http.MethodPost, "/api/v1/attendance/check-in", "S1", user.RoleStudent, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "ALREADY_CHECKED_IN", env.Error.Code)
	assert.Equal(t, "state_conflict", env.Error.Kind)

	rec = s.do(t, http.MethodPost, "/api/v1/attendance/check-out", "S1", user.RoleStudent, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/attendance/status", "S1", user.RoleStudent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status attendance.StatusResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &status))
	assert.Equal(t, "completed", status.State)
	assert.False(t, status.CanCheckIn)
	assert.False(t, status.CanCheckOut)
}

func TestRouter_CheckOutBeforeCheckIn(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-out", "S1", user.RoleStudent, map[string]interface{}{
		"method":   "qrToken",
		"token":    s.qrPayload(t, "S1", "student"),
		"location": schoolLocation,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "MUST_CHECK_IN_FIRST", decode(t, rec).Error.Code)
}

func TestRouter_StudentCannotActForOthers(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", "S1", user.RoleStudent, map[string]interface{}{
		"subject_id": "S2",
		"method":     "qrToken",
		"token":      s.qrPayload(t, "S2", "student"),
		"location":   schoolLocation,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_ManualRequiresStaff(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{
		"subject_type": "student",
		"subject_id":   "S2",
		"method":       "manual",
		"location":     schoolLocation,
	}

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", "kiosk-1", user.RoleDevice, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "MANUAL_NOT_ALLOWED", decode(t, rec).Error.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/attendance/check-in", "T1", user.RoleStaff, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created attendance.AttendanceResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))
	assert.Equal(t, "S2", created.SubjectID)
	assert.False(t, created.Verified)
}

func TestRouter_GeofenceRejections(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", "S1", user.RoleStudent, map[string]interface{}{
		"method": "qrToken",
		"token":  s.qrPayload(t, "S1", "student"),
		"location": map[string]float64{
			"latitude":  -6.2100,
			"longitude": 106.8166,
		},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "OUT_OF_RANGE", env.Error.Code)
	assert.Equal(t, "verification_failure", env.Error.Kind)
	assert.NotEmpty(t, env.Error.Details["distance_meters"])

	rec = s.do(t, http.MethodPost, "/api/v1/attendance/check-in", "S1", user.RoleStudent, map[string]interface{}{
		"method": "qrToken",
		"token":  s.qrPayload(t, "S1", "student"),
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "LOCATION_PERMISSION_DENIED", decode(t, rec).Error.Code)
}

func TestRouter_ValidationAndBadBody(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", "S1", user.RoleStudent, map[string]interface{}{
		"method":   "carrierPigeon",
		"location": schoolLocation,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "method")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/check-in", bytes.NewBufferString("{not json"))
	token, _, err := s.jwt.GenerateAccessToken("S1", user.RoleStudent)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	raw := httptest.NewRecorder()
	s.handler.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestRouter_Permissions(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		role   user.Role
		body   interface{}
		want   int
	}{
		{"student cannot list", http.MethodGet, "/api/v1/attendance", user.RoleStudent, nil, http.StatusForbidden},
		{"staff can list", http.MethodGet, "/api/v1/attendance", user.RoleStaff, nil, http.StatusOK},
		{"student cannot view reports", http.MethodGet, "/api/v1/reports/summary?from_date=2025-03-01&to_date=2025-03-31", user.RoleStudent, nil, http.StatusForbidden},
		{"staff cannot sweep", http.MethodPost, "/api/v1/sweeps", user.RoleStaff, map[string]interface{}{"scope": "student", "date": "2025-03-10"}, http.StatusForbidden},
		{"staff cannot change settings", http.MethodGet, "/api/v1/settings/attendance", user.RoleStaff, nil, http.StatusForbidden},
		{"device cannot issue tokens", http.MethodPost, "/api/v1/tokens", user.RoleDevice, map[string]interface{}{"subject_id": "S1", "role": "student"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, "U1", tt.role, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_ListAndReports(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", "S1", user.RoleStudent, map[string]interface{}{
		"method":   "qrToken",
		"token":    s.qrPayload(t, "S1", "student"),
		"location": schoolLocation,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/attendance?subject_type=student&limit=10", "T1", user.RoleStaff, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode(t, rec)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.TotalItems)
	assert.Equal(t, 1, env.Meta.Page)

	today := time.Now().UTC().Format("2006-01-02")
	rec = s.do(t, http.MethodGet, "/api/v1/reports/summary?subject_id=S1&from_date="+today+"&to_date="+today, "T1", user.RoleStaff, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary struct {
		TotalSessions     int     `json:"total_sessions"`
		PercentagePresent float64 `json:"percentage_present"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &summary))
	assert.Equal(t, 1, summary.TotalSessions)
	assert.Equal(t, 100.0, summary.PercentagePresent)

	rec = s.do(t, http.MethodGet, "/api/v1/reports/summary?from_date=2025-03-31&to_date=2025-03-01", "T1", user.RoleStaff, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/reports/groups/nowhere?from_date=2025-03-01&to_date=2025-03-31", "T1", user.RoleStaff, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Sweep(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/sweeps", "A1", user.RoleAdmin, map[string]interface{}{
		"scope": "student",
		"date":  "2025-03-10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result struct {
		Marked    int  `json:"marked"`
		Completed bool `json:"completed"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Equal(t, 2, result.Marked)
	assert.True(t, result.Completed)

	future := time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02")
	rec = s.do(t, http.MethodPost, "/api/v1/sweeps", "A1", user.RoleAdmin, map[string]interface{}{
		"scope": "student",
		"date":  future,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "FUTURE_DATE", decode(t, rec).Error.Code)
}

func TestRouter_Tokens(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/tokens", "T1", user.RoleStaff, map[string]interface{}{
		"subject_id": "S1",
		"role":       "student",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var issued IssueTokenResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &issued))
	tok, err := s.tokens.Parse(issued.Payload)
	require.NoError(t, err)
	assert.Equal(t, "S1", tok.SubjectID)

	rec = s.do(t, http.MethodPost, "/api/v1/tokens", "T1", user.RoleStaff, map[string]interface{}{
		"subject_id": "S1",
		"role":       "janitor",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/tokens/qr?subject_id=S1&role=student&size=128", "T1", user.RoleStaff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = s.do(t, http.MethodGet, "/api/v1/tokens/qr?subject_id=S1&role=student&size=9", "T1", user.RoleStaff, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Settings(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/settings/attendance", "A1", user.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg domainSettings.AttendanceSettingsResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &cfg))
	assert.Equal(t, "08:00", cfg.LateAfter)

	rec = s.do(t, http.MethodPut, "/api/v1/settings/attendance", "A1", user.RoleAdmin, map[string]interface{}{
		"late_after":  "07:30",
		"close_after": "14:00",
		"timezone":    "Asia/Jakarta",
		"school_days": []int{1, 2, 3, 4, 5},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/api/v1/settings/geofence", "A1", user.RoleAdmin, map[string]interface{}{
		"latitude":      -6.2,
		"longitude":     106.8,
		"radius_meters": 0,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/settings/geofence", "A1", user.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fence domainSettings.GeofenceResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &fence))
	assert.True(t, fence.Configured)
	assert.Equal(t, 150.0, fence.RadiusMeters)
}

func TestRouter_MetricsAndHeartbeat(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CheckInIsBroadcast(t *testing.T) {
	s := newTestServer(t)
	events, cleanup := s.hub.Subscribe(subjectTopic("S1"))
	defer cleanup()
	all, cleanupAll := s.hub.Subscribe(topicAll)
	defer cleanupAll()

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", "S1", user.RoleStudent, map[string]interface{}{
		"method":   "qrToken",
		"token":    s.qrPayload(t, "S1", "student"),
		"location": schoolLocation,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, ch := range []<-chan sse.Event{events, all} {
		select {
		case ev := <-ch:
			assert.Equal(t, eventCheckedIn, ev.Event)
			data, ok := ev.Data.(attendance.AttendanceResponse)
			require.True(t, ok)
			assert.Equal(t, "S1", data.SubjectID)
		default:
			t.Fatal("expected a broadcast event")
		}
	}
}

func TestRouter_StreamSendsEvents(t *testing.T) {
	s := newTestServer(t)

	token, _, err := s.jwt.GenerateAccessToken("T1", user.RoleStaff)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/attendance?jwt="+token, nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.handler.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return s.hub.SubscriberCount(topicAll) == 1 }, time.Second, 10*time.Millisecond)
	s.hub.Publish(topicAll, sse.Event{Event: eventCheckedIn, Data: map[string]string{"subject_id": "S1"}})

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: attendance.checked_in")
	assert.Contains(t, body, `"subject_id":"S1"`)
}
