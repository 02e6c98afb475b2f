package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"mealtrack-bff/internal/pkg/apperr"
	"mealtrack-bff/internal/pkg/jwtutil"
	"mealtrack-bff/internal/transport/http/middleware"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags used by the request
// types of this package and reports fields by their wire names.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(wireName)
		_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
			if fl.Field().Kind() != reflect.String {
				return false
			}
			_, err := ParseISO8601(fl.Field().String())
			return err == nil
		})
	})
}

// ParseISO8601 accepts RFC 3339 timestamps with an offset or Z, with or
// without fractional seconds.
func ParseISO8601(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}

func wireName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

func invalidRequest(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return apperr.Wrap(err, http.StatusBadRequest, apperr.CodeBadRequest,
			"invalid or missing fields: "+strings.Join(fields, ", "))
	}
	return apperr.Wrap(err, http.StatusBadRequest, apperr.CodeBadRequest, "invalid request payload")
}

func identity(c *gin.Context) (*jwtutil.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		_ = c.Error(apperr.New(http.StatusUnauthorized, apperr.CodeUnauthorized, "invalid token payload"))
	}
	return id, ok
}
