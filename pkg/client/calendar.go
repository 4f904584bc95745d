package client

import (
	"context"
	"fmt"
	"net/http"

	"studyrooms/pkg/logger"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarOptions selects how the Calendar API client authenticates.
type CalendarOptions struct {
	// ServiceAccountJSON is the service account key document.
	ServiceAccountJSON string
	// Endpoint overrides the API base URL (emulators, tests).
	Endpoint string
	// HTTPClient bypasses authentication entirely when set.
	HTTPClient *http.Client
}

// NewCalendarService builds a Calendar API v3 client scoped to read/write events.
func NewCalendarService(ctx context.Context, opts CalendarOptions) (*calendar.Service, error) {
	var clientOpts []option.ClientOption

	switch {
	case opts.HTTPClient != nil:
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	case opts.ServiceAccountJSON != "":
		clientOpts = append(clientOpts,
			option.WithCredentialsJSON([]byte(opts.ServiceAccountJSON)),
			option.WithScopes(calendar.CalendarEventsScope),
		)
	default:
		return nil, fmt.Errorf("calendar: service account key is required")
	}

	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to create service: %w", err)
	}
	return svc, nil
}

func (c *Client) SetCalendar(log *logger.Logger, opts CalendarOptions) {
	svc, err := NewCalendarService(context.Background(), opts)
	if err != nil {
		log.Fatal("Failed to initialize Google Calendar client", "error", err)
	}

	log.Info("Google Calendar client initialized", "custom_endpoint", opts.Endpoint != "")
	c.Calendar = svc
}
