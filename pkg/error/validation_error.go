package error

import "net/http"

// ValidationError marca entradas de operador que no pasan las reglas de
// validations/ (learn, forget, answer y los handlers REST).
type ValidationError string

func (err ValidationError) Error() string { return string(err) }

func (err ValidationError) ErrCode() string { return "VALIDATION_ERROR" }

func (err ValidationError) StatusCode() int { return http.StatusBadRequest }
