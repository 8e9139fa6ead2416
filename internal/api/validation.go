package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"sessionhistory/internal/models"
	"sessionhistory/internal/service/history"
)

type historyQuery struct {
	SessionID string `form:"sessionId" binding:"required,uuid"`
	Limit     string `form:"limit" binding:"omitempty,number"`
	Offset    string `form:"offset" binding:"omitempty,number"`
}

type annotateRequest struct {
	MessageID        string                `json:"messageId" binding:"required,uuid"`
	UserRating       models.Optional[int]  `json:"userRating"`
	UserFoundHelpful models.Optional[bool] `json:"userFoundHelpful"`
}

var registerOnce sync.Once

// registerValidators makes gin's validator report fields by their wire names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	})
}

// bindHistoryQuery parses the read endpoint's query string into a history.Query.
func bindHistoryQuery(c *gin.Context, defaultLimit, maxLimit int) (history.Query, error) {
	var raw historyQuery
	if err := c.ShouldBindQuery(&raw); err != nil {
		return history.Query{}, toValidationError(err)
	}
	var fields []history.FieldError
	limit, offset := defaultLimit, 0
	if raw.Limit != "" {
		n, err := strconv.Atoi(raw.Limit)
		switch {
		case err != nil:
			fields = append(fields, history.FieldError{Field: "limit", Message: "must be an integer"})
		case n < 1 || n > maxLimit:
			fields = append(fields, history.FieldError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", maxLimit)})
		default:
			limit = n
		}
	}
	if raw.Offset != "" {
		n, err := strconv.Atoi(raw.Offset)
		if err != nil || n < 0 {
			fields = append(fields, history.FieldError{Field: "offset", Message: "must be a non-negative integer"})
		} else {
			offset = n
		}
	}
	if len(fields) > 0 {
		return history.Query{}, &history.ValidationError{Fields: fields}
	}
	return history.Query{SessionID: raw.SessionID, Offset: offset, Limit: limit}, nil
}

// bindAnnotation parses the PATCH body into a history.AnnotationRequest.
func bindAnnotation(c *gin.Context) (history.AnnotationRequest, error) {
	var raw annotateRequest
	if err := c.ShouldBindJSON(&raw); err != nil {
		return history.AnnotationRequest{}, toValidationError(err)
	}
	a := models.Annotation{UserRating: raw.UserRating, UserFoundHelpful: raw.UserFoundHelpful}
	if a.Empty() {
		return history.AnnotationRequest{}, history.NewValidationError("body", "at least one of userRating or userFoundHelpful is required")
	}
	if rating, ok := a.UserRating.Get(); ok && (rating < models.MinRating || rating > models.MaxRating) {
		return history.AnnotationRequest{}, history.NewValidationError("userRating",
			fmt.Sprintf("must be between %d and %d", models.MinRating, models.MaxRating))
	}
	return history.AnnotationRequest{MessageID: raw.MessageID, Annotation: a}, nil
}

func toValidationError(err error) *history.ValidationError {
	var (
		verrs     validator.ValidationErrors
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs):
		fields := make([]history.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, history.FieldError{Field: fe.Field(), Message: describe(fe)})
		}
		return &history.ValidationError{Fields: fields}
	case errors.Is(err, models.ErrNullValue):
		return history.NewValidationError("body", err.Error())
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return history.NewValidationError(field, "must be a "+typeErr.Type.String())
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return history.NewValidationError("body", "malformed JSON")
	case errors.Is(err, io.EOF):
		return history.NewValidationError("body", "request body is required")
	default:
		return history.NewValidationError("body", "invalid request")
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid UUID"
	case "number":
		return "must be a non-negative integer"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
