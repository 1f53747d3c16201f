package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"arenapanel/internal/access"
	"arenapanel/internal/export"
	"arenapanel/internal/models"
	"arenapanel/internal/service"
)

func actorOf(r *http.Request) access.Session {
	return access.FromContext(r.Context())
}

func parseDateParam(w http.ResponseWriter, r *http.Request, name string, required bool) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		if required {
			writeError(w, http.StatusBadRequest, name+" is required")
			return time.Time{}, false
		}
		return time.Time{}, true
	}
	date, err := time.Parse(models.DateFormat, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+"; expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

// bookings

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter models.BookingFilter

	if raw := q.Get("space_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid space_id")
			return
		}
		filter.SpaceID = id
	}
	var ok bool
	if filter.From, ok = parseDateParam(w, r, "from", false); !ok {
		return
	}
	if filter.To, ok = parseDateParam(w, r, "to", false); !ok {
		return
	}
	if raw := q.Get("status"); raw != "" {
		filter.Status = models.BookingStatus(raw)
		if !filter.Status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
	}
	filter.IncludeCancelled = q.Get("include_cancelled") == "true"

	bookings, err := s.deps.Bookings.List(r.Context(), actorOf(r), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	booking, err := s.deps.Bookings.Get(r.Context(), actorOf(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var form service.BookingForm
	if !decodeJSON(w, r, &form) {
		return
	}
	s.submit(w, r, service.SubmitRequest{Op: service.OpCreate, Form: form}, http.StatusCreated)
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var form service.BookingForm
	if !decodeJSON(w, r, &form) {
		return
	}
	s.submit(w, r, service.SubmitRequest{Op: service.OpEdit, BookingID: id, Form: form}, http.StatusOK)
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.submit(w, r, service.SubmitRequest{Op: service.OpDelete, BookingID: id}, http.StatusOK)
}

// submit answers with the Submission; rejected ones carry the draft back so
// the form can be corrected.
func (s *HTTPServer) submit(w http.ResponseWriter, r *http.Request, req service.SubmitRequest, okStatus int) {
	sub, err := s.deps.Bookings.Submit(r.Context(), actorOf(r), req)
	if err != nil {
		status, body := describeError(err)
		body.Draft = sub
		s.logError(r, status, err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, okStatus, sub)
}

type statusRequest struct {
	Status  models.BookingStatus `json:"status"`
	Version int64                `json:"version"`
}

func (s *HTTPServer) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	booking, err := s.deps.Bookings.SetStatus(r.Context(), actorOf(r), id, req.Version, req.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// spaces

func (s *HTTPServer) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.SpaceFilter{
		Modality:      models.Modality(q.Get("modality")),
		AvailableOnly: q.Get("available") == "true",
	}
	if filter.Modality != "" && !filter.Modality.Valid() {
		writeError(w, http.StatusBadRequest, "invalid modality")
		return
	}

	spaces, err := s.deps.Spaces.List(r.Context(), actorOf(r), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if spaces == nil {
		spaces = []*models.Space{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"spaces": spaces})
}

func (s *HTTPServer) handleGetSpace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	space, err := s.deps.Spaces.Get(r.Context(), actorOf(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, space)
}

func (s *HTTPServer) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var space models.Space
	if !decodeJSON(w, r, &space) {
		return
	}
	if err := s.deps.Spaces.Create(r.Context(), actorOf(r), &space); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, space)
}

func (s *HTTPServer) handleUpdateSpace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var update models.SpaceUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	space, err := s.deps.Spaces.Update(r.Context(), actorOf(r), id, update)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, space)
}

func (s *HTTPServer) handleDeleteSpace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Spaces.Delete(r.Context(), actorOf(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleSpaceAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	date, ok := parseDateParam(w, r, "date", true)
	if !ok {
		return
	}
	free, err := s.deps.Bookings.FreeWindows(r.Context(), actorOf(r), id, date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if free == nil {
		free = []models.TimeRange{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"space_id": id,
		"date":     date.Format(models.DateFormat),
		"free":     free,
	})
}

// tickets

func (s *HTTPServer) handleListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.TicketFilter{
		Status:    models.TicketStatus(q.Get("status")),
		SpaceName: q.Get("space_name"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	tickets, err := s.deps.Tickets.List(r.Context(), actorOf(r), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickets": tickets})
}

func (s *HTTPServer) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ticket, err := s.deps.Tickets.Get(r.Context(), actorOf(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *HTTPServer) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var ticket models.Ticket
	if !decodeJSON(w, r, &ticket) {
		return
	}
	if err := s.deps.Tickets.Create(r.Context(), actorOf(r), &ticket); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (s *HTTPServer) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var update models.TicketUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	ticket, err := s.deps.Tickets.Update(r.Context(), actorOf(r), id, update)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *HTTPServer) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Tickets.Delete(r.Context(), actorOf(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// users

type createUserRequest struct {
	models.User
	Password string `json:"password"`
}

type updateUserRequest struct {
	models.UserUpdate
	Password string `json:"password"`
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var filter models.UserFilter
	if raw, ok := r.URL.Query()["role"]; ok {
		role := models.Role(strings.TrimSpace(raw[0]))
		if !role.Valid() {
			writeError(w, http.StatusBadRequest, "invalid role")
			return
		}
		filter.Role = &role
	}

	users, err := s.deps.Users.List(r.Context(), actorOf(r), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := s.deps.Users.Get(r.Context(), actorOf(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user := req.User
	if err := s.deps.Users.Create(r.Context(), actorOf(r), &user, req.Password); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.deps.Users.Update(r.Context(), actorOf(r), id, req.UserUpdate, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Users.Delete(r.Context(), actorOf(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploads and exports

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	if err := access.Authorize(actor, access.ActionCreate, false); err != nil {
		denied, _ := err.(*access.DeniedError)
		s.writeServiceError(w, r, &service.AuthorizationError{Denied: denied})
		return
	}

	// multipart overhead on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, models.MaxUploadBytes+64<<10)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeServiceError(w, r, &service.UploadError{Kind: service.UploadTooLarge})
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	url, err := s.deps.Uploads.Upload(r.Context(), actor, header.Filename, file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	from, ok := parseDateParam(w, r, "from", true)
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "to", true)
	if !ok {
		return
	}
	if err := export.ValidateRange(from, to); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor := actorOf(r)
	bookings, err := s.deps.Bookings.List(r.Context(), actor, models.BookingFilter{From: from, To: to, IncludeCancelled: true})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	spaces, err := s.deps.Spaces.List(r.Context(), actor, models.SpaceFilter{})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, from, to, spaces, bookings); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(from, to)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
