package interview

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrUnauthorized means the interview session has no valid sign-in.
var ErrUnauthorized = errors.New("interview session is not authorized; sign in and try again")

const validationMessage = "Please upload a resume and select the interview type."

// StartRequest carries the inputs fixed for one interview.
type StartRequest struct {
	ResumePath    string `validate:"required"`
	JobRole       string `validate:"required"`
	InterviewType string `validate:"required,oneof=HR Technical Both"`
}

// ValidationError lists the start inputs that are missing or invalid.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return validationMessage
	}
	return fmt.Sprintf("%s (invalid: %s)", validationMessage, strings.Join(e.Fields, ", "))
}

// Message is the user-facing text.
func (e *ValidationError) Message() string { return validationMessage }

var validate = validator.New()

// Validate trims the request and checks every field, including that the
// resume is a readable regular file.
func (r *StartRequest) Validate() error {
	r.ResumePath = strings.TrimSpace(r.ResumePath)
	r.JobRole = strings.TrimSpace(r.JobRole)
	r.InterviewType = strings.TrimSpace(r.InterviewType)

	var fields []string
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, fieldName(fe.Field()))
		}
	}

	if r.ResumePath != "" {
		info, err := os.Stat(r.ResumePath)
		if err != nil || !info.Mode().IsRegular() {
			fields = append(fields, "resume")
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func fieldName(field string) string {
	switch field {
	case "ResumePath":
		return "resume"
	case "JobRole":
		return "job role"
	case "InterviewType":
		return "interview type"
	default:
		return strings.ToLower(field)
	}
}
