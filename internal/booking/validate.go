package booking

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"bayfront/internal/daterange"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// FieldError ties a validation message to the form field that caused it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the full set of problems with a submission. All
// fields are checked so the guest can fix everything in one pass.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// SubmitRequest is a guest's booking form as received by the API.
type SubmitRequest struct {
	GuestName       string `json:"guest_name"`
	GuestEmail      string `json:"guest_email"`
	GuestPhone      string `json:"guest_phone"`
	StartDate       string `json:"start_date"` // YYYY-MM-DD
	EndDate         string `json:"end_date"`   // YYYY-MM-DD
	NumGuests       int    `json:"num_guests"`
	SpecialRequests string `json:"special_requests"`
}

// validate normalizes the form and collects every problem with it. The
// returned range is only meaningful when the error list is empty.
func (s *Service) validate(req *SubmitRequest) (daterange.Range, ValidationErrors) {
	var errs ValidationErrors

	req.GuestName = strings.TrimSpace(req.GuestName)
	req.GuestEmail = strings.TrimSpace(strings.ToLower(req.GuestEmail))
	req.GuestPhone = strings.TrimSpace(req.GuestPhone)
	req.SpecialRequests = strings.TrimSpace(req.SpecialRequests)

	if req.GuestName == "" {
		errs = append(errs, FieldError{"guest_name", "name is required"})
	} else if len(req.GuestName) > 100 {
		errs = append(errs, FieldError{"guest_name", "name must be at most 100 characters"})
	}
	if !emailPattern.MatchString(req.GuestEmail) {
		errs = append(errs, FieldError{"guest_email", "a valid email address is required"})
	}
	if len(req.GuestPhone) > 30 {
		errs = append(errs, FieldError{"guest_phone", "phone number is too long"})
	}
	if len(req.SpecialRequests) > 1000 {
		errs = append(errs, FieldError{"special_requests", "special requests must be at most 1000 characters"})
	}
	if req.NumGuests < 1 {
		errs = append(errs, FieldError{"num_guests", "at least one guest is required"})
	} else if req.NumGuests > s.maxGuests {
		errs = append(errs, FieldError{"num_guests", fmt.Sprintf("the property sleeps at most %d guests", s.maxGuests)})
	}

	start, startErr := time.ParseInLocation("2006-01-02", req.StartDate, s.loc)
	if startErr != nil {
		errs = append(errs, FieldError{"start_date", "check-in date must be YYYY-MM-DD"})
	}
	end, endErr := time.ParseInLocation("2006-01-02", req.EndDate, s.loc)
	if endErr != nil {
		errs = append(errs, FieldError{"end_date", "check-out date must be YYYY-MM-DD"})
	}
	if startErr != nil || endErr != nil {
		return daterange.Range{}, errs
	}

	r := daterange.New(start, end)
	today := daterange.Day(time.Now().In(s.loc))

	if !r.End.After(r.Start) {
		errs = append(errs, FieldError{"end_date", "check-out must be after check-in"})
		return r, errs
	}
	if r.Start.Before(today) {
		errs = append(errs, FieldError{"start_date", "check-in cannot be in the past"})
	}
	if r.Start.After(today.Add(s.advanceWindow)) {
		errs = append(errs, FieldError{"start_date", fmt.Sprintf("bookings open at most %d days in advance", int(s.advanceWindow.Hours()/24))})
	}
	if nights := r.Nights(); nights < s.minStay {
		errs = append(errs, FieldError{"end_date", fmt.Sprintf("minimum stay is %d nights", s.minStay)})
	} else if nights > s.maxStay {
		errs = append(errs, FieldError{"end_date", fmt.Sprintf("maximum stay is %d nights", s.maxStay)})
	}

	return r, errs
}
