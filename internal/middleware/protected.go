package middleware

import "github.com/labstack/echo/v4"

// Protected returns a root-level group whose routes run behind m. Group.Use
// adds catch-all not-found routes carrying the group middleware; those are
// replaced with bare ones so unknown paths stay 404 instead of 401.
func Protected(e *echo.Echo, m ...echo.MiddlewareFunc) *echo.Group {
	g := e.Group("", m...)
	e.RouteNotFound("/", echo.NotFoundHandler)
	e.RouteNotFound("/*", echo.NotFoundHandler)
	return g
}
