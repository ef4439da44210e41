package error

import "net/http"

// NotFoundError cubre lookups de triggers o pendientes que ya no existen;
// el middleware Recovery lo traduce a un 404.
type NotFoundError string

func (err NotFoundError) Error() string { return string(err) }

func (err NotFoundError) ErrCode() string { return "NOT_FOUND_ERROR" }

func (err NotFoundError) StatusCode() int { return http.StatusNotFound }
