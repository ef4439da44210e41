package error

import "net/http"

// InternalServerError es el fallback del middleware Recovery para panics
// sin tipo propio.
type InternalServerError string

func (err InternalServerError) Error() string { return string(err) }

func (err InternalServerError) ErrCode() string { return "INTERNAL_SERVER_ERROR" }

func (err InternalServerError) StatusCode() int { return http.StatusInternalServerError }
