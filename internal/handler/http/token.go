package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/qrtoken"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// TokenIssuer is the part of qrtoken.Service the handler needs.
type TokenIssuer interface {
	Issue(subjectID, role string, groupID *string) qrtoken.Token
}

type IssueTokenRequest struct {
	SubjectID string  `json:"subject_id"`
	Role      string  `json:"role"`
	GroupID   *string `json:"group_id,omitempty"`
}

func (r *IssueTokenRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.SubjectID) {
		errs = append(errs, validator.ValidationError{
			Field:   "subject_id",
			Message: "subject_id is required",
		})
	}
	if !validator.IsInSlice(r.Role, []string{"student", "staff", "teacher", "admin"}) {
		errs = append(errs, validator.ValidationError{
			Field:   "role",
			Message: "role must be one of: student, staff, teacher, admin",
		})
	}
	if r.GroupID != nil && validator.IsEmpty(*r.GroupID) {
		r.GroupID = nil
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type IssueTokenResponse struct {
	Payload  string `json:"payload"`
	IssuedAt string `json:"issued_at"`
}

type TokenHandler interface {
	Issue(w http.ResponseWriter, r *http.Request)
	QRCode(w http.ResponseWriter, r *http.Request)
}

type tokenHandlerImpl struct {
	issuer TokenIssuer
}

func NewTokenHandler(issuer TokenIssuer) TokenHandler {
	return &tokenHandlerImpl{issuer: issuer}
}

// Issue handles POST /tokens and returns the encoded QR payload.
func (h *tokenHandlerImpl) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	token := h.issuer.Issue(req.SubjectID, req.Role, req.GroupID)
	payload, err := qrtoken.Encode(token)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Token issued", IssueTokenResponse{
		Payload:  payload,
		IssuedAt: token.IssuedTime().UTC().Format(time.RFC3339),
	})
}

// QRCode handles GET /tokens/qr and renders a freshly issued token as PNG.
func (h *tokenHandlerImpl) QRCode(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := IssueTokenRequest{
		SubjectID: query.Get("subject_id"),
		Role:      query.Get("role"),
	}
	if groupID := query.Get("group_id"); groupID != "" {
		req.GroupID = &groupID
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	size := defaultQRSize
	if s := query.Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > maxQRSize {
			response.BadRequest(w, "size must be between 64 and 1024", nil)
			return
		}
		size = n
	}

	png, err := qrtoken.PNG(h.issuer.Issue(req.SubjectID, req.Role, req.GroupID), size)
	if err != nil {
		slog.Error("Failed to render qr code", "subject_id", req.SubjectID, "error", err)
		response.InternalServerError(w, "Failed to render qr code")
		return
	}

	response.PNG(w, png)
}
