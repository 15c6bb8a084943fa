package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// Client wraps the Google Calendar API for a service account that salon
// owners have shared their calendars with.
type Client struct {
	svc    *gcal.Service
	logger *logging.Logger
}

// Credentials holds the service-account identity used for calendar access.
type Credentials struct {
	ClientEmail string
	PrivateKey  string
}

// NewClient builds a calendar client from service-account credentials.
func NewClient(ctx context.Context, creds Credentials, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(creds.ClientEmail) == "" || strings.TrimSpace(creds.PrivateKey) == "" {
		return nil, errors.New("calendar: service account credentials are required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	saJSON, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"client_email": creds.ClientEmail,
		"private_key":  NormalizePrivateKey(creds.PrivateKey),
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return nil, fmt.Errorf("calendar: encode credentials: %w", err)
	}

	svc, err := gcal.NewService(ctx,
		option.WithCredentialsJSON(saJSON),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w", err)
	}
	return &Client{svc: svc, logger: logger}, nil
}

// NormalizePrivateKey undoes the mangling env vars apply to PEM blocks:
// wrapping quotes and literal "\n" sequences.
func NormalizePrivateKey(key string) string {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, `"`) && strings.HasSuffix(key, `"`) && len(key) >= 2 {
		key = key[1 : len(key)-1]
	}
	return strings.ReplaceAll(key, `\n`, "\n")
}

// BusyIntervals queries freebusy for the calendar over [start, end) and
// returns the ordered busy windows.
func (c *Client) BusyIntervals(ctx context.Context, calendarID string, start, end time.Time) ([]Interval, error) {
	if strings.TrimSpace(calendarID) == "" {
		return nil, &Error{Reason: ReasonNotConfigured, Op: "freebusy"}
	}

	req := &gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}
	resp, err := c.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, classify("freebusy", err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, &Error{Reason: ReasonTransient, Op: "freebusy", Err: errors.New("calendar missing from response")}
	}
	if len(cal.Errors) > 0 {
		// Per-calendar errors mean the grant is broken (notFound / forbidden).
		return nil, &Error{Reason: ReasonPermissionDenied, Op: "freebusy", Err: fmt.Errorf("%s: %s", cal.Errors[0].Domain, cal.Errors[0].Reason)}
	}

	return parseBusy(cal.Busy)
}

func parseBusy(periods []*gcal.TimePeriod) ([]Interval, error) {
	intervals := make([]Interval, 0, len(periods))
	for _, p := range periods {
		start, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return nil, &Error{Reason: ReasonTransient, Op: "freebusy", Err: fmt.Errorf("parse busy start %q: %w", p.Start, err)}
		}
		end, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return nil, &Error{Reason: ReasonTransient, Op: "freebusy", Err: fmt.Errorf("parse busy end %q: %w", p.End, err)}
		}
		intervals = append(intervals, Interval{Start: start, End: end})
	}
	return intervals, nil
}

// CreateEvent inserts the mirrored booking event and returns its reference.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, in EventInput) (*EventRef, error) {
	if strings.TrimSpace(calendarID) == "" {
		return nil, &Error{Reason: ReasonNotConfigured, Op: "events.insert"}
	}

	event := &gcal.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Start:       &gcal.EventDateTime{DateTime: in.Start.Format(time.RFC3339), TimeZone: in.Timezone},
		End:         &gcal.EventDateTime{DateTime: in.End.Format(time.RFC3339), TimeZone: in.Timezone},
	}
	created, err := c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, classify("events.insert", err)
	}

	c.logger.Debug("mirror event created", "calendar_id", calendarID, "event_id", created.Id)
	return &EventRef{ID: created.Id, HTMLLink: created.HtmlLink}, nil
}

// EventExists reports whether the mirrored event is still present upstream.
// Deleted events answer (false, nil); transient failures return an error so
// callers do not mistake an outage for a deletion.
func (c *Client) EventExists(ctx context.Context, calendarID, eventID string) (bool, error) {
	if strings.TrimSpace(calendarID) == "" || strings.TrimSpace(eventID) == "" {
		return false, &Error{Reason: ReasonNotConfigured, Op: "events.get"}
	}

	event, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
			return false, nil
		}
		return false, classify("events.get", err)
	}
	// Cancelled events linger with status "cancelled" instead of 404/410.
	if event.Status == "cancelled" {
		return false, nil
	}
	return true, nil
}

func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Reason: ReasonPermissionDenied, Op: op, Err: err}
		}
	}
	return &Error{Reason: ReasonTransient, Op: op, Err: err}
}
