package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"studyrooms/pkg/config"
	"studyrooms/pkg/logger"
	"studyrooms/pkg/model"
	"studyrooms/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

// Layouts accepted for the naive local start time, tried in order. RFC 3339
// input carries its own offset and is taken as absolute.
var startTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields returns the errors keyed by field, for error details.
func (v ValidationErrors) Fields() map[string]any {
	fields := make(map[string]any, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return fields
}

type ReservationValidator struct {
	validate      *validator.Validate
	tokenPattern  *regexp.Regexp
	tokenRequired bool
	emailSuffix   string
	maxDuration   int
	rooms         map[string]string
	roomList      []string
	logger        *logger.Logger
}

func NewReservationValidator(cfg *config.Config) *ReservationValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	tokenPattern, err := regexp.Compile(cfg.VerificationTokenPattern)
	if err != nil {
		cfg.Log.Fatal("Invalid verification token pattern", "pattern", cfg.VerificationTokenPattern, "error", err)
	}

	if err := v.RegisterValidation("verification_token", func(fl validator.FieldLevel) bool {
		return tokenPattern.MatchString(fl.Field().String())
	}); err != nil {
		cfg.Log.Fatal("Failed to register 'verification_token' validator",
			"error", err,
		)
	}

	roomList := sanitizer.NormalizeRooms(cfg.Rooms)
	rooms := make(map[string]string, len(roomList))
	for _, room := range roomList {
		key := sanitizer.NormalizeForComparison(room)
		if _, seen := rooms[key]; !seen {
			rooms[key] = room
		}
	}

	cfg.Log.Info("Reservation validator initialized successfully", "rooms", len(rooms))

	return &ReservationValidator{
		validate:      v,
		tokenPattern:  tokenPattern,
		tokenRequired: cfg.VerificationTokenRequired,
		emailSuffix:   strings.ToLower(cfg.RequiredEmailSuffix),
		maxDuration:   cfg.MaxDurationMinutes,
		rooms:         rooms,
		roomList:      roomList,
		logger:        cfg.Log,
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// ValidateEmailPolicy checks the caller belongs to the organization.
func (v *ReservationValidator) ValidateEmailPolicy(email string) error {
	if err := v.validate.Var(email, "required,email"); err != nil || !strings.HasSuffix(strings.ToLower(email), v.emailSuffix) {
		return ValidationErrors{
			ValidationError{
				Field:   "userEmail",
				Message: fmt.Sprintf("Must use %s email", v.emailSuffix),
			},
		}
	}
	return nil
}

// ValidateToken checks the verification token format. An empty token passes
// only when tokens are optional.
func (v *ReservationValidator) ValidateToken(token string) error {
	if token == "" && !v.tokenRequired {
		return nil
	}
	if !v.tokenPattern.MatchString(token) {
		return ValidationErrors{
			ValidationError{
				Field:   "verificationToken",
				Message: "Invalid verification token format",
			},
		}
	}
	return nil
}

// Validate checks the remaining request fields. Email policy and token are
// checked separately because they map to different statuses.
func (v *ReservationValidator) Validate(req *model.CreateReservationRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if req.Duration > v.maxDuration {
		return ValidationErrors{
			ValidationError{
				Field:   "duration",
				Message: fmt.Sprintf("duration must be at most %d minutes", v.maxDuration),
			},
		}
	}

	if _, ok := v.CanonicalRoom(req.RoomName); !ok {
		return ValidationErrors{
			ValidationError{
				Field:   "roomName",
				Message: fmt.Sprintf("unknown room: %s", req.RoomName),
			},
		}
	}

	return nil
}

// ValidateCredential checks a cancel or check-in credential.
func (v *ReservationValidator) ValidateCredential(c *model.Credential) error {
	if c.Empty() {
		return ValidationErrors{
			ValidationError{
				Field:   "credential",
				Message: "userEmail or verificationToken is required",
			},
		}
	}
	if v.tokenRequired && c.VerificationToken == "" {
		return ValidationErrors{
			ValidationError{
				Field:   "verificationToken",
				Message: "verificationToken is required",
			},
		}
	}
	if c.VerificationToken != "" {
		if err := v.ValidateToken(c.VerificationToken); err != nil {
			return err
		}
	}
	if err := v.validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// CanonicalRoom maps a submitted room name onto the configured spelling. With
// no configured rooms every non-empty name is accepted as is.
func (v *ReservationValidator) CanonicalRoom(name string) (string, bool) {
	name = sanitizer.NormalizeRoomName(name)
	if name == "" {
		return "", false
	}
	if len(v.rooms) == 0 {
		return name, true
	}
	room, ok := v.rooms[sanitizer.NormalizeForComparison(name)]
	return room, ok
}

// Rooms returns the configured rooms in configuration order.
func (v *ReservationValidator) Rooms() []string {
	out := make([]string, len(v.roomList))
	copy(out, v.roomList)
	return out
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "verification_token":
			message = "Invalid verification token format"
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

// ParseStartTime interprets raw as wall clock time in loc unless it carries an
// explicit offset.
func ParseStartTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ValidationErrors{
		ValidationError{
			Field:   "startTime",
			Message: "startTime must look like 2006-01-02T15:04",
		},
	}
}
