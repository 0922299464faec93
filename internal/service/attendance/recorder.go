package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/roster"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/faceclient"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/qrtoken"
	"github.com/cmlabs-hris/school-attendance-go/internal/service/geofence"
)

type GeofenceValidator interface {
	Validate(ctx context.Context, loc *attendance.Location) (geofence.Result, error)
}

type TokenParser interface {
	Parse(payload string) (qrtoken.Token, error)
}

// Options tune the recorder. Zero values disable the token freshness window
// and the per-call timeout.
type Options struct {
	TokenMaxAge time.Duration
	Timeout     time.Duration
	Now         func() time.Time
}

// tokenClockSkew is how far in the future a token timestamp may be before it
// is treated as expired.
const tokenClockSkew = time.Minute

type RecorderImpl struct {
	ledger   attendance.Ledger
	records  attendance.AttendanceRepository
	tokens   TokenParser
	fence    GeofenceValidator
	settings settings.Provider
	roster   roster.RosterRepository
	face     faceclient.Verifier
	metrics  *metrics.Metrics

	tokenMaxAge time.Duration
	timeout     time.Duration
	now         func() time.Time
}

// roleSubjectType maps the role claimed in a QR token to the subject type it
// may record attendance for.
func roleSubjectType(role string) (attendance.SubjectType, bool) {
	switch strings.ToLower(role) {
	case "student":
		return attendance.SubjectStudent, true
	case "staff", "teacher", "admin":
		return attendance.SubjectStaff, true
	default:
		return "", false
	}
}

// Record implements attendance.Recorder.
func (r *RecorderImpl) Record(ctx context.Context, req attendance.RecordRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, r.reject(req, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	now := r.now().UTC()

	// 1. Location
	if _, err := r.fence.Validate(ctx, req.Location); err != nil {
		return attendance.AttendanceResponse{}, r.reject(req, err)
	}

	// 2. Identity proof
	verified, err := r.verifyProof(ctx, req, now)
	if err != nil {
		return attendance.AttendanceResponse{}, r.reject(req, err)
	}

	cfg, err := r.settings.GetAttendanceSettings(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, r.reject(req, err)
	}

	// 3. Existing record for today, keyed on the subject only
	key := attendance.Key{
		SubjectType: req.SubjectType,
		SubjectID:   req.SubjectID,
		Date:        cfg.Today(now),
	}
	existing, err := r.ledger.Find(ctx, key)
	if err != nil {
		return attendance.AttendanceResponse{}, r.reject(req, err)
	}

	// Fail closed if verification used up the caller's deadline.
	if err := ctx.Err(); err != nil {
		return attendance.AttendanceResponse{}, r.reject(req, fmt.Errorf("attendance not recorded: %w", err))
	}

	var rec attendance.Record
	switch req.Mode {
	case attendance.ModeIn:
		rec, err = r.checkIn(ctx, req, cfg, key, existing, verified, now)
	case attendance.ModeOut:
		rec, err = r.checkOut(ctx, key, existing, now)
	}
	if err != nil {
		return attendance.AttendanceResponse{}, r.reject(req, err)
	}

	var method string
	if rec.Method != nil {
		method = string(*rec.Method)
	}
	r.metrics.Recorded(string(rec.SubjectType), string(req.Mode), method, string(rec.Status))
	slog.Info("Attendance recorded",
		"subject_type", rec.SubjectType,
		"subject_id", rec.SubjectID,
		"date", rec.Date,
		"mode", req.Mode,
		"status", rec.Status,
		"verified", rec.Verified)

	return attendance.ToResponse(rec), nil
}

func (r *RecorderImpl) checkIn(ctx context.Context, req attendance.RecordRequest, cfg settings.AttendanceSettings, key attendance.Key, existing *attendance.Record, verified bool, now time.Time) (attendance.Record, error) {
	if existing != nil {
		return attendance.Record{}, attendance.CheckInRejection(*existing)
	}

	cutoff, err := cfg.LateCutoff(key.Date)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to compute late cutoff: %w", err)
	}

	rec, err := attendance.NewCheckIn(key, req.GroupID, attendance.Classify(now, cutoff), req.Method, verified, now)
	if err != nil {
		return attendance.Record{}, err
	}

	created, err := r.ledger.Create(ctx, rec)
	if err != nil {
		if !errors.Is(err, attendance.ErrDuplicateRecord) {
			return attendance.Record{}, err
		}
		// Lost the race; report against whatever won.
		winner, findErr := r.ledger.Find(ctx, key)
		if findErr != nil || winner == nil {
			return attendance.Record{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.Record{}, attendance.CheckInRejection(*winner)
	}

	return created, nil
}

func (r *RecorderImpl) checkOut(ctx context.Context, key attendance.Key, existing *attendance.Record, now time.Time) (attendance.Record, error) {
	if existing == nil {
		return attendance.Record{}, attendance.ErrMustCheckInFirst
	}

	updated, err := r.ledger.Transition(ctx, existing.ID, attendance.Move{Kind: attendance.MoveCheckOut, At: now})
	if err != nil {
		if !errors.Is(err, attendance.ErrInvalidTransition) {
			return attendance.Record{}, err
		}
		current, findErr := r.ledger.Find(ctx, key)
		if findErr == nil && current != nil && current.State == attendance.StateCompleted {
			return attendance.Record{}, attendance.ErrAlreadyCheckedOut
		}
		return attendance.Record{}, err
	}

	return updated, nil
}

// verifyProof checks the identity proof for the request method and reports
// whether the write counts as verified.
func (r *RecorderImpl) verifyProof(ctx context.Context, req attendance.RecordRequest, now time.Time) (bool, error) {
	switch req.Method {
	case attendance.MethodQRToken:
		if req.Token == nil || strings.TrimSpace(*req.Token) == "" {
			return false, attendance.ErrProofRequired
		}
		tok, err := r.tokens.Parse(*req.Token)
		if err != nil {
			switch {
			case errors.Is(err, qrtoken.ErrInvalidSignature):
				return false, attendance.ErrInvalidSignature
			case errors.Is(err, qrtoken.ErrMalformedToken):
				return false, attendance.ErrMalformedToken
			default:
				return false, fmt.Errorf("failed to parse qr token: %w", err)
			}
		}
		subjectType, ok := roleSubjectType(tok.Role)
		if !ok || subjectType != req.SubjectType || tok.SubjectID != req.SubjectID {
			return false, attendance.ErrInvalidToken
		}
		if r.tokenMaxAge > 0 && (tok.Age(now) > r.tokenMaxAge || tok.Age(now) < -tokenClockSkew) {
			return false, attendance.ErrTokenExpired
		}
		return true, nil

	case attendance.MethodBiometric:
		enrolled, err := r.roster.HasBiometricEnrollment(ctx, req.SubjectID)
		if err != nil {
			return false, fmt.Errorf("failed to check biometric enrollment: %w", err)
		}
		if !enrolled {
			return false, attendance.ErrNotEnrolled
		}

		matched := req.BiometricVerified != nil && *req.BiometricVerified
		if req.BiometricVerified == nil && req.FaceImageURL != nil && r.face != nil {
			result, err := r.face.Verify(ctx, req.SubjectID, *req.FaceImageURL)
			if err != nil {
				return false, fmt.Errorf("face verification unavailable: %w", err)
			}
			matched = result.Verified
		} else if req.BiometricVerified == nil {
			return false, attendance.ErrProofRequired
		}
		if !matched {
			return false, attendance.ErrBiometricMismatch
		}
		return true, nil

	case attendance.MethodManual:
		if !req.ActorIsStaff {
			return false, attendance.ErrManualNotAllowed
		}
		return false, nil
	}

	return false, attendance.ErrProofRequired
}

func (r *RecorderImpl) reject(req attendance.RecordRequest, err error) error {
	kind := attendance.KindOf(err)
	code := attendance.CodeOf(err)
	r.metrics.Rejected(string(req.Mode), string(kind), code)

	switch kind {
	case attendance.KindVerification:
		attrs := []any{
			"kind", kind,
			"code", code,
			"subject_type", req.SubjectType,
			"subject_id", req.SubjectID,
			"mode", req.Mode,
			"method", req.Method,
		}
		var outOfRange *attendance.OutOfRangeError
		if errors.As(err, &outOfRange) {
			attrs = append(attrs, "distance_meters", math.Round(outOfRange.DistanceMeters))
		}
		slog.Warn("Attendance verification failed", attrs...)
	case attendance.KindInfrastructure:
		slog.Error("Attendance recording failed",
			"code", code,
			"subject_id", req.SubjectID,
			"mode", req.Mode,
			"error", err)
	}

	return err
}

// Status implements attendance.Recorder.
func (r *RecorderImpl) Status(ctx context.Context, req attendance.StatusRequest) (attendance.StatusResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.StatusResponse{}, err
	}

	cfg, err := r.settings.GetAttendanceSettings(ctx)
	if err != nil {
		return attendance.StatusResponse{}, err
	}

	date := cfg.Today(r.now())
	rec, err := r.ledger.Find(ctx, attendance.Key{SubjectType: req.SubjectType, SubjectID: req.SubjectID, Date: date})
	if err != nil {
		return attendance.StatusResponse{}, err
	}

	resp := attendance.StatusResponse{Date: date}
	if rec == nil {
		resp.CanCheckIn = true
		resp.Message = "Not checked in yet today"
		if !cfg.IsSchoolDay(date) {
			resp.Message = "Today is not a school day"
		}
		return resp, nil
	}

	today := attendance.ToResponse(*rec)
	resp.HasRecord = true
	resp.State = string(rec.State)
	resp.TodayAttendance = &today

	switch rec.State {
	case attendance.StateCheckedIn:
		resp.CanCheckOut = true
		resp.Message = "Checked in, check out when leaving"
	case attendance.StateCompleted:
		resp.Message = "Attendance completed for today"
	case attendance.StateAbsent:
		resp.Message = "Marked absent for today"
	}

	return resp, nil
}

// List implements attendance.Recorder.
func (r *RecorderImpl) List(ctx context.Context, filter attendance.RecordFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	records, total, err := r.records.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, attendance.ToResponse(rec))
	}

	totalPages := 1
	showing := fmt.Sprintf("%d of %d", len(records), total)
	if filter.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(filter.Limit)))
		showing = fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	}
	if total == 0 {
		showing = "0 of 0"
		totalPages = 0
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}, nil
}

func NewRecorder(
	ledger attendance.Ledger,
	records attendance.AttendanceRepository,
	tokens TokenParser,
	fence GeofenceValidator,
	provider settings.Provider,
	rosterRepo roster.RosterRepository,
	face faceclient.Verifier,
	m *metrics.Metrics,
	opts Options,
) attendance.Recorder {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &RecorderImpl{
		ledger:      ledger,
		records:     records,
		tokens:      tokens,
		fence:       fence,
		settings:    provider,
		roster:      rosterRepo,
		face:        face,
		metrics:     m,
		tokenMaxAge: opts.TokenMaxAge,
		timeout:     opts.Timeout,
		now:         now,
	}
}
