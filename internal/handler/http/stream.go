package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/user"
	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/sse"
)

const (
	topicAll          = "all"
	streamKeepalive   = 30 * time.Second
	eventCheckedIn    = "attendance.checked_in"
	eventCheckedOut   = "attendance.checked_out"
	eventStreamOpened = "connected"
)

func groupTopic(groupID string) string     { return "group:" + groupID }
func subjectTopic(subjectID string) string { return "subject:" + subjectID }

func (h *attendanceHandlerImpl) broadcast(mode attendance.Mode, rec attendance.AttendanceResponse) {
	if h.hub == nil {
		return
	}

	event := eventCheckedIn
	if mode == attendance.ModeOut {
		event = eventCheckedOut
	}
	topics := []string{topicAll, subjectTopic(rec.SubjectID)}
	if rec.GroupID != nil {
		topics = append(topics, groupTopic(*rec.GroupID))
	}
	h.hub.PublishToMany(topics, sse.Event{Event: event, Data: rec})
}

// Stream handles GET /stream/attendance. Staff may follow a group or the
// whole school; everyone else only sees their own records.
func (h *attendanceHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		response.NotFound(w, "Live attendance feed is disabled")
		return
	}

	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	topic := subjectTopic(id.UserID)
	if id.Role.IsStaff() {
		switch query := r.URL.Query(); {
		case query.Get("group_id") != "":
			topic = groupTopic(query.Get("group_id"))
		case query.Get("subject_id") != "":
			topic = subjectTopic(query.Get("subject_id"))
		default:
			topic = topicAll
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(topic)
	defer cleanup()

	fmt.Fprintf(w, "event: %s\ndata: {\"topic\":%q}\n\n", eventStreamOpened, topic)
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
