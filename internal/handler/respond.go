package handler

import "github.com/labstack/echo/v4"

// All endpoints answer with one of two envelopes:
//
//	{"success": true,  "message": ..., "data": ...}
//	{"success": false, "message": ..., "error": <REASON>}
//
// Validation problems replace "error" with a field->problem map under
// "validationErrors".

func respondOK(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "message": message, "data": data})
}

func respondErr(c echo.Context, status int, message, code string) error {
	return c.JSON(status, echo.Map{"success": false, "message": message, "error": code})
}

func respondValidation(c echo.Context, status int, message string, errs map[string]string) error {
	return c.JSON(status, echo.Map{"success": false, "message": message, "validationErrors": errs})
}
