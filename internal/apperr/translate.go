package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	mysqlDuplicateEntry = 1062
	mysqlNoReferenced   = 1452
)

var duplicateValue = regexp.MustCompile(`Duplicate entry '(.*)' for key`)

var tokenErrors = []error{
	jwt.ErrTokenMalformed,
	jwt.ErrTokenSignatureInvalid,
	jwt.ErrTokenExpired,
	jwt.ErrTokenNotValidYet,
	jwt.ErrTokenUnverifiable,
	jwt.ErrTokenInvalidClaims,
}

// Translate rewrites storage, token and framework failures into AppErrors.
// Anything unrecognised becomes a non-operational 500.
func Translate(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var castErr *CastError
	if errors.As(err, &castErr) {
		e := BadRequest(castErr.Error())
		e.Err = err
		return e
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		e := BadRequest(valErr.Error())
		e.Err = err
		return e
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			value := ""
			if m := duplicateValue.FindStringSubmatch(myErr.Message); len(m) == 2 {
				value = m[1]
			}
			e := BadRequest(fmt.Sprintf("Duplicate field value: %s. Please use another value!", value))
			e.Err = err
			return e
		case mysqlNoReferenced:
			e := BadRequest("Referenced document does not exist")
			e.Err = err
			return e
		}
	}

	for _, te := range tokenErrors {
		if errors.Is(err, te) {
			e := Unauthorized("Token is invalid or expired")
			e.Err = err
			return e
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		e := New(he.Code, msg)
		e.Err = err
		if he.Code >= http.StatusInternalServerError {
			e.Operational = false
		}
		return e
	}

	return Internal(err)
}
