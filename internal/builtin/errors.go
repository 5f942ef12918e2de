package builtin

import "errors"

// Ошибки встроенных задач.
var (
	// ErrHTTPRequest — HTTP-запрос не выполнен.
	ErrHTTPRequest = errors.New("http request failed")

	// ErrHTTPStatus — сервер ответил кодом >= 400.
	ErrHTTPStatus = errors.New("http error status")
)
