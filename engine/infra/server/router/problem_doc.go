package router

// ProblemDocument models an RFC 7807 error envelope for API responses.
type ProblemDocument struct {
	Type    string `json:"type,omitempty"    example:"about:blank"`
	Error   string `json:"error"             example:"Bad Request"`
	Status  int    `json:"status"            example:"400"`
	Details string `json:"details,omitempty" example:"Multipart request is empty"`
	Code    string `json:"code,omitempty"    example:"invalid_input"`
}
