package core

import (
	"errors"
	"net/http"
)

// Problem captures the information returned in an RFC 7807 error response.
type Problem struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string
	Extras   map[string]any
}

// NormalizeProblem ensures the provided problem includes canonical defaults.
func NormalizeProblem(problem *Problem) *Problem {
	if problem == nil {
		problem = &Problem{}
	}
	if problem.Status == 0 {
		problem.Status = http.StatusInternalServerError
	}
	if problem.Title == "" {
		problem.Title = http.StatusText(problem.Status)
	}
	if problem.Type == "" {
		problem.Type = "about:blank"
	}
	return problem
}

// BuildProblemBody assembles the serialized representation of the problem.
func BuildProblemBody(problem *Problem) map[string]any {
	body := map[string]any{
		"status": problem.Status,
		"error":  problem.Title,
	}
	if problem.Detail != "" {
		body["details"] = problem.Detail
	}
	if code, ok := problem.Extras["code"]; ok {
		body["code"] = code
	}
	if problem.Type != "" {
		body["type"] = problem.Type
	}
	if problem.Instance != "" {
		body["instance"] = problem.Instance
	}
	extras := make(map[string]any, len(problem.Extras))
	for key, value := range problem.Extras {
		if !isReservedProblemKey(key) {
			extras[key] = value
		}
	}
	if len(extras) == 0 {
		return body
	}
	return CopyMaps(body, extras)
}

func isReservedProblemKey(key string) bool {
	switch key {
	case "status", "error", "details", "code", "type", "instance":
		return true
	default:
		return false
	}
}

// ProblemFromError maps an *Error reason code to an HTTP problem.
func ProblemFromError(err error) *Problem {
	status := http.StatusInternalServerError
	switch CodeOf(err) {
	case CodeInvalidInput, CodeValidation:
		status = http.StatusBadRequest
	case CodeUnsupportedOperation:
		status = http.StatusUnprocessableEntity
	case CodeConflict:
		status = http.StatusConflict
	case CodeNotFound:
		status = http.StatusNotFound
	}
	problem := &Problem{Status: status, Detail: err.Error()}
	var coreErr *Error
	if errors.As(err, &coreErr) {
		problem.Extras = CopyMaps(coreErr.Details, map[string]any{"code": coreErr.Code})
	}
	return NormalizeProblem(problem)
}
