package errors

import (
	"errors"
	"net/http"

	"github.com/carbonledger/api/shared/apierror"
	"github.com/gofiber/fiber/v2"
)

var (
	ErrEmissionNotFound = errors.New("data not found")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidRow       = errors.New("invalid row")
	ErrEmptyBatch       = errors.New("no rows to insert")
	ErrInvalidCSV       = errors.New("invalid csv")
	ErrMissingFile      = errors.New("file is required")
)

const (
	CodeEmissionNotFound = "DATA_NOT_FOUND"
	CodeInvalidDate      = "INVALID_DATE"
	CodeInvalidRow       = "INVALID_ROW"
	CodeEmptyBatch       = "EMPTY_BATCH"
	CodeInvalidCSV       = "INVALID_CSV"
	CodeMissingFile      = "MISSING_FILE"
)

type ErrorResponse = apierror.ErrorResponse

func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrEmissionNotFound):
		return apierror.Respond(c, http.StatusNotFound, CodeEmissionNotFound, "Data not found", nil)
	case errors.Is(err, ErrInvalidRow):
		return apierror.Respond(c, http.StatusBadRequest, CodeInvalidRow, err.Error(), nil)
	case errors.Is(err, ErrInvalidDate):
		return apierror.Respond(c, http.StatusBadRequest, CodeInvalidDate, err.Error(), nil)
	case errors.Is(err, ErrEmptyBatch):
		return apierror.Respond(c, http.StatusBadRequest, CodeEmptyBatch, "No rows to insert", nil)
	case errors.Is(err, ErrInvalidCSV):
		return apierror.Respond(c, http.StatusBadRequest, CodeInvalidCSV, err.Error(), nil)
	case errors.Is(err, ErrMissingFile):
		return apierror.Respond(c, http.StatusBadRequest, CodeMissingFile, "A CSV file is required in the file field", nil)
	default:
		return apierror.HandleCommon(c, err)
	}
}
